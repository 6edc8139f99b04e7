package imgutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const maxIconSize = 256

// encodeICO writes a single-entry icon whose image is stored as PNG.
// Images larger than 256x256 are scaled down to fit.
func encodeICO(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Dx() > maxIconSize || b.Dy() > maxIconSize {
		img = imaging.Fit(img, maxIconSize, maxIconSize, imaging.Lanczos)
		b = img.Bounds()
	}

	var payload bytes.Buffer
	if err := imaging.Encode(&payload, img, imaging.PNG); err != nil {
		return err
	}

	header := make([]byte, 6)
	binary.LittleEndian.PutUint16(header[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(header[4:], 1) // image count

	entry := make([]byte, 16)
	entry[0] = iconDimension(b.Dx())
	entry[1] = iconDimension(b.Dy())
	binary.LittleEndian.PutUint16(entry[4:], 1)  // color planes
	binary.LittleEndian.PutUint16(entry[6:], 32) // bits per pixel
	binary.LittleEndian.PutUint32(entry[8:], uint32(payload.Len()))
	binary.LittleEndian.PutUint32(entry[12:], uint32(len(header)+len(entry)))

	for _, chunk := range [][]byte{header, entry, payload.Bytes()} {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// iconDimension encodes 256 as 0, as the ICO directory requires.
func iconDimension(n int) byte {
	if n >= maxIconSize {
		return 0
	}
	return byte(n)
}
