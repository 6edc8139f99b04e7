package imgutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
)

func TestFormatFromPath(t *testing.T) {
	cases := []struct {
		path string
		want Format
		ok   bool
	}{
		{"photo.jpg", FormatJPEG, true},
		{"PHOTO.JPEG", FormatJPEG, true},
		{"scan.Tif", FormatTIFF, true},
		{"logo.ico", FormatIcon, true},
		{"shot.exif", FormatExif, true},
		{"chart.WMF", FormatWMF, true},
		{"clip.emf", FormatEMF, true},
		{"old.bmp", FormatBMP, true},
		{"anim.gif", FormatGIF, true},
		{"modern.webp", FormatUnknown, false},
		{"noextension", FormatUnknown, false},
	}
	for _, tc := range cases {
		got, ok := FormatFromPath(tc.path)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("FormatFromPath(%q) = %v, %v; want %v, %v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDecodeRejectsOversizedFromHeader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.png")
	writePNG(t, src, 20, 20)

	codec := NewCodec(100, 0, "")
	if _, err := codec.Decode(src); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestDecodeInvalidData(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(src, []byte("definitely not pixels"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	codec := NewCodec(0, 0, "")
	if _, err := codec.Decode(src); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestEncodeRasterFormats(t *testing.T) {
	dir := t.TempDir()
	img := gradientImage(16, 12)
	codec := NewCodec(0, 90, "")

	cases := map[Format]Kind{
		FormatJPEG: KindJPEG,
		FormatPNG:  KindPNG,
		FormatGIF:  KindGIF,
		FormatTIFF: KindTIFF,
		FormatBMP:  KindBMP,
		FormatWMF:  KindPNG,
	}
	for format, kind := range cases {
		dst := filepath.Join(dir, "out."+format.String())
		if err := codec.Encode(img, dst, format); err != nil {
			t.Fatalf("encode %s: %v", format, err)
		}
		got, err := SniffFile(dst)
		if err != nil {
			t.Fatalf("sniff %s: %v", format, err)
		}
		if got != kind {
			t.Fatalf("%s: expected %s data, got %s", format, kind, got)
		}
		decoded, err := codec.Decode(dst)
		if err != nil {
			t.Fatalf("decode %s: %v", format, err)
		}
		if decoded.Bounds().Dx() != 16 || decoded.Bounds().Dy() != 12 {
			t.Fatalf("%s: unexpected bounds %v", format, decoded.Bounds())
		}
	}
}

func TestEncodeIconFitsDirectoryLimits(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "icon.ico")

	if err := NewCodec(0, 0, "").Encode(gradientImage(512, 256), dst, FormatIcon); err != nil {
		t.Fatalf("encode icon: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if DetectHeader(data) != KindIcon {
		t.Fatalf("expected icon header, got % x", data[:6])
	}
	if count := binary.LittleEndian.Uint16(data[4:]); count != 1 {
		t.Fatalf("expected one icon entry, got %d", count)
	}
	if data[6] != 0 || data[7] != 128 {
		t.Fatalf("expected 256x128 entry, got %dx%d", data[6], data[7])
	}
	offset := binary.LittleEndian.Uint32(data[18:])
	if !bytes.HasPrefix(data[offset:], pngSig) {
		t.Fatalf("expected PNG payload at offset %d", offset)
	}
}

func TestEncodeExifContainer(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "shot.exif")

	codec := NewCodec(0, 0, "tint-test")
	codec.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	if err := codec.Encode(gradientImage(8, 8), dst, FormatExif); err != nil {
		t.Fatalf("encode exif: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if DetectHeader(data) != KindJPEG {
		t.Fatalf("exif container should be a JPEG stream")
	}

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		t.Fatalf("extract exif: %v", err)
	}
	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		t.Fatalf("parse exif: %v", err)
	}

	values := map[string]string{}
	for _, tag := range tags {
		values[tag.TagName] = fmt.Sprint(tag.Value)
	}
	if values["Software"] != "tint-test" {
		t.Fatalf("expected Software tag, got %#v", values)
	}
	if values["DateTime"] != "2024:01:02 03:04:05" {
		t.Fatalf("expected DateTime tag, got %#v", values)
	}

	if _, err := codec.Decode(dst); err != nil {
		t.Fatalf("exif container should decode: %v", err)
	}
}

func TestInjectJPEGExifReplacesExistingBlock(t *testing.T) {
	var src bytes.Buffer
	src.Write([]byte{0xff, 0xd8})
	_ = writeSegment(&src, 0xe1, append([]byte("Exif\x00\x00"), []byte("old")...))
	_ = writeSegment(&src, 0xfe, []byte("comment"))
	src.Write([]byte{0xff, 0xd9})

	var out bytes.Buffer
	if err := injectJPEGExif(&src, &out, []byte("new")); err != nil {
		t.Fatalf("inject: %v", err)
	}

	data := out.Bytes()
	if n := bytes.Count(data, jpegExifHeader); n != 1 {
		t.Fatalf("expected exactly one exif block, got %d", n)
	}
	if bytes.Contains(data, []byte("old")) {
		t.Fatalf("previous exif block should be dropped")
	}
	if !bytes.Contains(data, []byte("comment")) {
		t.Fatalf("other segments should be kept")
	}
}

func TestEncodeReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.png")
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := NewCodec(0, 0, "").Encode(gradientImage(4, 4), dst, FormatPNG); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if kind, _ := SniffFile(dst); kind != KindPNG {
		t.Fatalf("expected existing file to be replaced with PNG data, got %s", kind)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, gradientImage(w, h)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}
