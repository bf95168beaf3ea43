package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DefaultSource: "s3",
		ImageExpiry:   time.Hour,
		MaxFileSize:   1024,
		FetchTimeout:  time.Second,
	}
}

func TestExcludes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"s3", []string{"s3"}},
		{"s3,local", []string{"s3", "local"}},
		{" s3 , ,local,", []string{"s3", "local"}},
	}

	for _, tt := range tests {
		c := &Config{ExcludeSources: tt.in}
		if got := c.Excludes(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Excludes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty default source", mutate: func(c *Config) { c.DefaultSource = "" }, wantErr: "default-source"},
		{name: "zero file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "max-file-size"},
		{name: "zero timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, wantErr: "fetch-timeout"},
		{
			name: "http origin without url",
			mutate: func(c *Config) {
				c.ExternalSources = map[string]ExternalOrigin{"cdn": {Type: OriginHTTP}}
			},
			wantErr: "external-sources.cdn",
		},
		{
			name: "unknown origin type",
			mutate: func(c *Config) {
				c.ExternalSources = map[string]ExternalOrigin{"ftp": {Type: "ftp", URL: "ftp://x"}}
			},
			wantErr: "unknown origin type",
		},
		{
			name: "valid origins",
			mutate: func(c *Config) {
				c.ExternalSources = map[string]ExternalOrigin{
					"cdn":     {Type: OriginHTTP, URL: "https://cdn.example.com"},
					"archive": {Type: OriginS3, Bucket: "archive", Region: "eu-west-1"},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IMGDISPATCH_EXCLUDE_SOURCES", "local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultSource != "s3" {
		t.Errorf("default source = %q", cfg.DefaultSource)
	}
	if cfg.ImageExpiry != 365*24*time.Hour {
		t.Errorf("image expiry = %v", cfg.ImageExpiry)
	}
	if got := cfg.Excludes(); len(got) != 1 || got[0] != "local" {
		t.Errorf("excludes = %v", got)
	}
}
