package image

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Parsed
	}{
		{
			name: "plain input format",
			path: "a/b/name.png",
			want: Parsed{Dir: "a/b/", Image: "name", Base: "name", Ext: "png"},
		},
		{
			name: "input and output format",
			path: "/images/photo.png.webp",
			want: Parsed{Dir: "/images/", Image: "photo", Base: "photo", Ext: "png", OutputFormat: "webp"},
		},
		{
			name: "metadata suffix",
			path: "/images/name.jpg.json",
			want: Parsed{Dir: "/images/", Image: "name", Base: "name", Ext: "jpg", Format: "jpg", Metadata: true},
		},
		{
			name: "metadata short-circuits output format",
			path: "/photo.png.webp.json",
			want: Parsed{Dir: "/", Image: "photo.png", Base: "photo.png", Ext: "webp", Format: "webp", Metadata: true},
		},
		{
			name: "metadata without format",
			path: "/name.json",
			want: Parsed{Dir: "/", Image: "name", Base: "name", Metadata: true},
		},
		{
			name: "no dots",
			path: "/images/name",
			want: Parsed{Dir: "/images/", Image: "name", Base: "name"},
		},
		{
			name: "invalid output format is not stripped",
			path: "/photo.png.bmp",
			want: Parsed{Dir: "/", Image: "photo.png", Base: "photo.png", Ext: "bmp"},
		},
		{
			name: "gif is not an output format",
			path: "/photo.png.gif",
			want: Parsed{Dir: "/", Image: "photo.png", Base: "photo.png", Ext: "gif"},
		},
		{
			name: "image is lower-cased, base keeps request case",
			path: "/Photo.PNG.WEBP",
			want: Parsed{Dir: "/", Image: "photo", Base: "Photo", Ext: "PNG", OutputFormat: "webp"},
		},
		{
			name: "metadata suffix lower-cases image",
			path: "/Name.JPG.json",
			want: Parsed{Dir: "/", Image: "name", Base: "Name", Ext: "JPG", Format: "jpg", Metadata: true},
		},
		{
			name: "no suffix rule still lower-cases image",
			path: "/images/MyPhoto.png",
			want: Parsed{Dir: "/images/", Image: "myphoto", Base: "MyPhoto", Ext: "png"},
		},
		{
			name: "unaccepted extension",
			path: "/images/cat.bmp",
			want: Parsed{Dir: "/images/", Image: "cat", Base: "cat", Ext: "bmp"},
		},
		{
			name: "dotted base name",
			path: "/v1.2/my.photo.jpeg",
			want: Parsed{Dir: "/v1.2/", Image: "my.photo", Base: "my.photo", Ext: "jpeg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePath(tt.path)
			if got != tt.want {
				t.Errorf("ParsePath(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParsePathInputFormats(t *testing.T) {
	for _, f := range ValidInputFormats {
		got := ParsePath("a/b/name." + f)
		if got.Image != "name" {
			t.Errorf("%s: image = %q, want name", f, got.Image)
		}
		if got.Format != "" || got.OutputFormat != "" {
			t.Errorf("%s: format should be undetermined, got %+v", f, got)
		}

		for _, out := range ValidOutputFormats {
			got := ParsePath("name." + f + "." + out)
			if got.Image != "name" || got.OutputFormat != out {
				t.Errorf("%s.%s: got %+v", f, out, got)
			}
		}

		got = ParsePath("name." + f + ".json")
		if got.Image != "name" || got.Format != f {
			t.Errorf("%s.json: got %+v", f, got)
		}
	}
}

func TestParsedKey(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/images/photo.png.webp", "images/photo.png"},
		{"/images/photo.PNG.json", "images/photo.PNG"},
		{"/Photo.PNG.WEBP", "Photo.PNG"},
		{"/images/MyPhoto.png", "images/MyPhoto.png"},
		{"/photo", "photo"},
		{"folder/cat.bmp", "folder/cat.bmp"},
	}
	for _, tt := range tests {
		if got := ParsePath(tt.path).Key(); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
