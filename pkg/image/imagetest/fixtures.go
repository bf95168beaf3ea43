// Package imagetest provides small encoded images for tests.
package imagetest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
)

func canvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 60), uint8(y * 60), 128, 255})
		}
	}
	return img
}

// PNG returns a 4x4 PNG.
func PNG() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG returns a 4x4 JPEG.
func JPEG() []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas(), &jpeg.Options{Quality: 80}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// GIF returns a 4x4 GIF.
func GIF() []byte {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, canvas(), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WebP returns a minimal lossless WebP container. Only the header is
// meaningful; it is enough for signature detection.
func WebP() []byte {
	vp8l := []byte{0x2f, 0x00, 0x00, 0x00, 0x00, 0x88, 0x88, 0x08}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(vp8l)))
	buf.WriteString("WEBP")
	buf.WriteString("VP8L")
	binary.Write(&buf, binary.LittleEndian, uint32(len(vp8l)))
	buf.Write(vp8l)
	return buf.Bytes()
}

// BMP returns a 1x1 24-bit bitmap.
func BMP() []byte {
	const headerSize = 14 + 40
	pixel := []byte{0x00, 0x00, 0xff, 0x00} // BGR + row padding
	var buf bytes.Buffer
	buf.WriteString("BM")
	binary.Write(&buf, binary.LittleEndian, uint32(headerSize+len(pixel)))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(headerSize))
	binary.Write(&buf, binary.LittleEndian, uint32(40))
	binary.Write(&buf, binary.LittleEndian, int32(1))
	binary.Write(&buf, binary.LittleEndian, int32(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(24))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pixel)))
	binary.Write(&buf, binary.LittleEndian, int32(2835))
	binary.Write(&buf, binary.LittleEndian, int32(2835))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(pixel)
	return buf.Bytes()
}
