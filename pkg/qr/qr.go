// Package qr writes QR ticket artifacts. The image codec itself is the
// go-qrcode library; this wrapper only decides size, placement and naming
// (one PNG per PNR, served statically).
package qr

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// Writer renders PNR codes to PNG files under a base directory
type Writer struct {
	dir  string
	size int
}

// NewWriter creates a Writer rooted at dir, creating it if needed
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create qr directory: %w", err)
	}

	return &Writer{dir: dir, size: 256}, nil
}

// Path returns where the artifact for a PNR lives
func (w *Writer) Path(pnr string) string {
	return filepath.Join(w.dir, pnr+".png")
}

// Write renders the PNR into its PNG file, overwriting any previous
// artifact. Idempotent: re-verifying a payment regenerates the same image.
func (w *Writer) Write(pnr string) (string, error) {
	path := w.Path(pnr)
	if err := qrcode.WriteFile(pnr, qrcode.Medium, w.size, path); err != nil {
		return "", fmt.Errorf("failed to write qr code for %s: %w", pnr, err)
	}

	return path, nil
}

// Encode returns the PNG bytes for a PNR without touching disk, for callers
// that stream the image straight into a response
func (w *Writer) Encode(pnr string) ([]byte, error) {
	png, err := qrcode.Encode(pnr, qrcode.Medium, w.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code for %s: %w", pnr, err)
	}

	return png, nil
}
