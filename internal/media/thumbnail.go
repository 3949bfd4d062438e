package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// MaxSide bounds both dimensions of a stored product image.
const MaxSide = 800

const productImageDir = "products"

// ErrInvalidImage reports an upload that could not be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// Thumbnail shrinks img to fit within maxSide x maxSide keeping its aspect
// ratio. Images that already fit are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// Store writes product images below a media root directory.
type Store struct {
	root    string
	maxSide int
}

func NewStore(root string) *Store {
	return &Store{root: root, maxSide: MaxSide}
}

// SaveProductImage decodes src, applies the thumbnail step and saves the
// result under a fresh name. It returns the path relative to the media root.
func (s *Store) SaveProductImage(src io.Reader, filename string) (string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, err := imaging.FormatFromExtension(ext); err != nil || ext == "" {
		ext = ".jpg"
	}
	rel := path.Join(productImageDir, uuid.New().String()+ext)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", filepath.Dir(full), err)
	}

	if err := imaging.Save(Thumbnail(img, s.maxSide), full); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return rel, nil
}

// RemoveProductImage deletes a file previously returned by SaveProductImage.
// A missing file is not an error.
func (s *Store) RemoveProductImage(rel string) error {
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+rel)))
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", full, err)
	}
	return nil
}
