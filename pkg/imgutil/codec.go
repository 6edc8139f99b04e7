package imgutil

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	// Extra input decoders; imaging already registers jpeg, png, gif, tiff and bmp.
	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

var (
	ErrInvalidImage      = errors.New("invalid image")
	ErrTooLarge          = errors.New("image exceeds memory budget")
	ErrUnsupportedFormat = errors.New("unsupported container format")
)

const defaultJPEGQuality = 95

// Codec decodes input images and encodes results into the supported
// container formats.
type Codec struct {
	// MaxPixels bounds width*height of anything Decode will fully load.
	// Zero disables the check.
	MaxPixels   int64
	JPEGQuality int
	// Software is recorded in the EXIF block of exif containers.
	Software string

	now func() time.Time
}

func NewCodec(maxPixels int64, jpegQuality int, software string) *Codec {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = defaultJPEGQuality
	}
	return &Codec{
		MaxPixels:   maxPixels,
		JPEGQuality: jpegQuality,
		Software:    software,
		now:         time.Now,
	}
}

// Decode loads the image at path. Oversized images are rejected from their
// header with ErrTooLarge before any pixel data is allocated; undecodable data
// is reported as ErrInvalidImage.
func (c *Codec) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, invalidImage(path, err)
	}
	if c.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > c.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d is more than %d pixels", ErrTooLarge, cfg.Width, cfg.Height, c.MaxPixels)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, invalidImage(path, err)
	}
	return img, nil
}

func invalidImage(path string, cause error) error {
	kind, sniffErr := SniffFile(path)
	if sniffErr == nil && kind != KindUnknown {
		return fmt.Errorf("%w: %v (data looks like %s)", ErrInvalidImage, cause, kind)
	}
	return fmt.Errorf("%w: %v", ErrInvalidImage, cause)
}

// Encode writes img to path in the given format. The data is written to a
// temporary file next to path and renamed into place, so an existing file at
// path is replaced only once the new one is complete.
func (c *Codec) Encode(img image.Image, path string, format Format) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tint-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	bw := bufio.NewWriter(tmpFile)
	if err := c.encode(bw, img, format); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), path)
}

func (c *Codec) encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(c.JPEGQuality))
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case FormatIcon:
		return encodeICO(w, img)
	case FormatExif:
		return c.encodeExif(w, img)
	case FormatEMF, FormatWMF:
		// No raster-to-metafile encoder exists; the pixels are stored as PNG
		// under the requested name.
		return imaging.Encode(w, img, imaging.PNG)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
