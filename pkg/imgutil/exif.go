package imgutil

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

var jpegExifHeader = []byte("Exif\x00\x00")

// maxAPP1Payload is the largest payload a JPEG segment length can describe.
const maxAPP1Payload = 0xffff - 2

// encodeExif writes an EXIF container: a JPEG stream whose first segment is
// an APP1 EXIF block describing the software that produced it.
func (c *Codec) encodeExif(w io.Writer, img image.Image) error {
	var jpg bytes.Buffer
	if err := imaging.Encode(&jpg, img, imaging.JPEG, imaging.JPEGQuality(c.JPEGQuality)); err != nil {
		return err
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	tiff, err := buildExifTIFF(c.Software, now())
	if err != nil {
		return fmt.Errorf("build exif block: %w", err)
	}

	return injectJPEGExif(&jpg, w, tiff)
}

func buildExifTIFF(software string, stamp time.Time) ([]byte, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	ti := exif.NewTagIndex()
	ib := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)

	if software != "" {
		if err := ib.AddStandardWithName("Software", software); err != nil {
			return nil, err
		}
	}
	if err := ib.AddStandardWithName("DateTime", exifcommon.ExifFullTimestampString(stamp)); err != nil {
		return nil, err
	}

	ibe := exif.NewIfdByteEncoder()
	return ibe.EncodeToExif(ib)
}

// injectJPEGExif copies the JPEG stream from r to w, placing an APP1 segment
// carrying tiff directly after SOI and dropping any EXIF segment already present.
func injectJPEGExif(r io.Reader, w io.Writer, tiff []byte) error {
	payload := append(append([]byte{}, jpegExifHeader...), tiff...)
	if len(payload) > maxAPP1Payload {
		return fmt.Errorf("exif block too large: %d bytes", len(payload))
	}

	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	soi := make([]byte, 2)
	if _, err := io.ReadFull(br, soi); err != nil {
		return err
	}
	if soi[0] != 0xff || soi[1] != 0xd8 {
		return fmt.Errorf("invalid JPEG SOI")
	}
	if _, err := bw.Write(soi); err != nil {
		return err
	}
	if err := writeSegment(bw, 0xe1, payload); err != nil {
		return err
	}

	for {
		markerPrefix, err := br.ReadByte()
		if err != nil {
			return err
		}
		for markerPrefix != 0xff {
			markerPrefix, err = br.ReadByte()
			if err != nil {
				return err
			}
		}

		marker, err := br.ReadByte()
		if err != nil {
			return err
		}
		for marker == 0xff {
			marker, err = br.ReadByte()
			if err != nil {
				return err
			}
		}

		if marker == 0xd9 { // EOI
			if _, err := bw.Write([]byte{0xff, 0xd9}); err != nil {
				return err
			}
			break
		}

		if marker == 0xda { // SOS: the rest is entropy-coded data
			if _, err := bw.Write([]byte{0xff, marker}); err != nil {
				return err
			}
			if _, err := io.Copy(bw, br); err != nil {
				return err
			}
			break
		}

		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			if _, err := bw.Write([]byte{0xff, marker}); err != nil {
				return err
			}
			continue
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			return err
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf))
		if segLen < 2 {
			return fmt.Errorf("invalid JPEG segment length")
		}
		segment := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, segment); err != nil {
			return err
		}

		if marker == 0xe1 && hasPrefix(segment, jpegExifHeader) {
			continue
		}
		if err := writeSegment(bw, marker, segment); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeSegment(w io.Writer, marker byte, payload []byte) error {
	head := []byte{0xff, marker, 0, 0}
	binary.BigEndian.PutUint16(head[2:], uint16(len(payload)+2))
	if _, err := w.Write(head); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
