// Package imaging normalises invoice attachments before they are stored.
// Photos and scans are downscaled and re-encoded as JPEG; PDFs are kept
// byte for byte.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/erazemk/prostock/internal/model"
)

const (
	// MaxDimension bounds the width and height of stored invoice scans.
	MaxDimension = 2000
	// MaxBytes is the largest accepted upload.
	MaxBytes = 10 << 20

	jpegQuality = 85

	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimePDF  = "application/pdf"
)

// Invoice is a normalised attachment ready for storage.
type Invoice struct {
	Data []byte
	MIME string
}

// NormalizeInvoice sniffs the upload, rejecting anything that is not a JPEG,
// PNG or PDF. The client's Content-Type is ignored.
func NormalizeInvoice(r io.Reader) (*Invoice, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading invoice: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty invoice", model.ErrValidation)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("%w: invoice larger than %d bytes", model.ErrValidation, MaxBytes)
	}

	switch detected := http.DetectContentType(data); detected {
	case mimePDF:
		return &Invoice{Data: data, MIME: mimePDF}, nil
	case mimeJPEG, mimePNG:
		return reencode(data)
	default:
		return nil, fmt.Errorf("%w: unsupported invoice format %s", model.ErrValidation, detected)
	}
}

func reencode(data []byte) (*Invoice, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding invoice image: %v", model.ErrValidation, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, MaxDimension), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding invoice image: %w", err)
	}
	return &Invoice{Data: buf.Bytes(), MIME: mimeJPEG}, nil
}

// fit scales img down, keeping its aspect ratio, so neither side exceeds
// maxDim. Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := maxDim, maxDim
	if w > h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
