package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestProcessGroupImage_PNG_ToJPEG(t *testing.T) {
	out, ct, _, err := ProcessGroupImage(bytes.NewReader(encodePNG(t, 120, 60)), DefaultGroupImageOptions())
	if err != nil {
		t.Fatalf("ProcessGroupImage: %v", err)
	}
	if ct != "image/jpeg" {
		t.Fatalf("content type = %q, want image/jpeg", ct)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("jpeg decode: %v", err)
	}
	if decoded.Bounds().Dx() != 120 || decoded.Bounds().Dy() != 60 {
		t.Fatalf("dims = %dx%d, want 120x60", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestProcessGroupImage_DownscalesToFit(t *testing.T) {
	opts := DefaultGroupImageOptions()
	opts.MaxDim = 100
	out, _, _, err := ProcessGroupImage(bytes.NewReader(encodePNG(t, 50, 200)), opts)
	if err != nil {
		t.Fatalf("ProcessGroupImage: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("jpeg decode: %v", err)
	}
	// 50x200 scaled to fit MaxDim=100 => 25x100
	if decoded.Bounds().Dx() != 25 || decoded.Bounds().Dy() != 100 {
		t.Fatalf("dims = %dx%d, want 25x100", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestProcessGroupImage_TooLarge(t *testing.T) {
	opts := DefaultGroupImageOptions()
	opts.MaxBytes = 10
	_, _, _, err := ProcessGroupImage(bytes.NewReader(bytes.Repeat([]byte{0x00}, 11)), opts)
	if err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestProcessGroupImage_RejectsPDF(t *testing.T) {
	payload := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{'x'}, 64)...)
	_, _, _, err := ProcessGroupImage(bytes.NewReader(payload), DefaultGroupImageOptions())
	if err != ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestReadDocument(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		max     int64
		wantCT  string
		wantErr error
	}{
		{"pdf", append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'a'}, 20)...), 1024, "application/pdf", nil},
		{"png", encodePNGBytes(), 1 << 20, "image/png", nil},
		{"text", []byte(strings.Repeat("hello", 10)), 1024, "", ErrUnsupported},
		{"too large", append([]byte("%PDF-"), bytes.Repeat([]byte{'a'}, 100)...), 10, "", ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ct, err := ReadDocument(bytes.NewReader(tt.payload), tt.max)
			if err != tt.wantErr {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if ct != tt.wantCT {
				t.Errorf("content type = %q, want %q", ct, tt.wantCT)
			}
		})
	}
}

func encodePNGBytes() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	return buf.Bytes()
}

func TestSafeObjectKey(t *testing.T) {
	bad := []string{"", "../x", "leads/..\\x", "avatars/1/a.jpg", "leads/../groups/1"}
	for _, k := range bad {
		if _, err := SafeObjectKey(k); err == nil {
			t.Errorf("SafeObjectKey(%q) expected error", k)
		}
	}

	key, err := SafeObjectKey("/leads//7/a.pdf")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if key != "leads/7/a.pdf" {
		t.Fatalf("key = %q", key)
	}
}

func TestLeadDocumentKey(t *testing.T) {
	key := LeadDocumentKey(7, "Invoice.PDF")
	if !strings.HasPrefix(key, "leads/7/") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("key = %q", key)
	}
	if k := LeadDocumentKey(7, "weird.ext with space"); strings.Contains(k, " ") {
		t.Fatalf("key kept unsafe extension: %q", k)
	}
	if _, err := SafeObjectKey(GroupImageKey(3)); err != nil {
		t.Fatalf("GroupImageKey not accepted by SafeObjectKey: %v", err)
	}
}
