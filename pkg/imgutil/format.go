package imgutil

import (
	"path/filepath"
	"strings"
)

// Format identifies one of the container formats an output can be saved as.
type Format int

const (
	FormatUnknown Format = iota
	FormatBMP
	FormatEMF
	FormatExif
	FormatGIF
	FormatIcon
	FormatJPEG
	FormatPNG
	FormatTIFF
	FormatWMF
)

func (f Format) String() string {
	switch f {
	case FormatBMP:
		return "bmp"
	case FormatEMF:
		return "emf"
	case FormatExif:
		return "exif"
	case FormatGIF:
		return "gif"
	case FormatIcon:
		return "icon"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tiff"
	case FormatWMF:
		return "wmf"
	default:
		return "unknown"
	}
}

var extensionFormats = map[string]Format{
	".bmp":  FormatBMP,
	".dib":  FormatBMP,
	".emf":  FormatEMF,
	".exif": FormatExif,
	".gif":  FormatGIF,
	".ico":  FormatIcon,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".jfif": FormatJPEG,
	".png":  FormatPNG,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".wmf":  FormatWMF,
}

// FormatFromExt maps a file extension (with or without the leading dot) to a
// Format. The lookup is case-insensitive and never inspects file contents.
func FormatFromExt(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := extensionFormats[ext]
	return f, ok
}

// FormatFromPath maps the extension of path to a Format.
func FormatFromPath(path string) (Format, bool) {
	return FormatFromExt(filepath.Ext(path))
}
