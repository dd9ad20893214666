package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	ErrTooLarge     = errors.New("file too large")
	ErrInvalidImage = errors.New("invalid image")
	ErrUnsupported  = errors.New("unsupported file type")
)

type ImageProcessOptions struct {
	MaxBytes    int64
	MaxDim      int
	JPEGQuality int
	// Alpha channels are flattened onto this background.
	FlattenBackground color.RGBA
}

// DefaultGroupImageOptions fits group banners into a square-ish 1024 box.
func DefaultGroupImageOptions() ImageProcessOptions {
	return ImageProcessOptions{
		MaxBytes:          5 * 1024 * 1024,
		MaxDim:            1024,
		JPEGQuality:       85,
		FlattenBackground: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// DetectContentType identifies the accepted upload types by magic number:
// JPEG, PNG, WebP and PDF.
func DetectContentType(header []byte) (string, error) {
	if len(header) >= 5 && string(header[:5]) == "%PDF-" {
		return "application/pdf", nil
	}
	if len(header) < 12 {
		return "", ErrUnsupported
	}
	// JPEG: FF D8 FF
	if header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF {
		return "image/jpeg", nil
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if bytes.Equal(header[:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png", nil
	}
	// WebP: RIFF....WEBP
	if string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP" {
		return "image/webp", nil
	}
	return "", ErrUnsupported
}

// ReadDocument reads at most maxBytes from r and returns the bytes with
// their sniffed content type.
func ReadDocument(r io.Reader, maxBytes int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrTooLarge
	}
	ct, err := DetectContentType(data)
	if err != nil {
		return nil, "", err
	}
	return data, ct, nil
}

// ProcessGroupImage validates an uploaded image, downscales it to fit
// within MaxDim and re-encodes it as JPEG. It never upscales.
func ProcessGroupImage(r io.Reader, opts ImageProcessOptions) ([]byte, string, int64, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 * 1024 * 1024
	}
	if opts.MaxDim <= 0 {
		opts.MaxDim = 1024
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 85
	}

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, "", 0, err
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, "", 0, ErrTooLarge
	}
	if len(data) < 12 {
		return nil, "", 0, ErrInvalidImage
	}

	srcType, err := DetectContentType(data[:12])
	if err != nil {
		return nil, "", 0, err
	}

	var img image.Image
	switch srcType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, "", 0, ErrUnsupported
	}
	if err != nil {
		return nil, "", 0, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	tw, th, ok := fitWithin(bounds.Dx(), bounds.Dy(), opts.MaxDim)
	if !ok {
		return nil, "", 0, ErrInvalidImage
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.FlattenBackground), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, "", 0, fmt.Errorf("encode: %w", err)
	}
	return out.Bytes(), "image/jpeg", int64(out.Len()), nil
}

// fitWithin preserves aspect ratio and never upscales.
func fitWithin(w, h, maxDim int) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	if w <= maxDim && h <= maxDim {
		return w, h, true
	}
	tw, th := w, h
	if w >= h {
		tw = maxDim
		th = int(float64(h) * (float64(maxDim) / float64(w)))
	} else {
		th = maxDim
		tw = int(float64(w) * (float64(maxDim) / float64(h)))
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th, true
}
