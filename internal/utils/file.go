package utils

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/skarv/object-eraser/pkg/stroke"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	ext := GetFileExtension(filename)
	imageExts := []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp"}

	for _, imgExt := range imageExts {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// LoadImage loads an image from a file path with WebP support
func LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if img, err := webp.Decode(f); err == nil {
		return img, nil
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// SaveImage saves an image to a file with the format implied by the extension
func SaveImage(img image.Image, path string, quality int) error {
	switch GetFileExtension(path) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return imaging.Save(img, path)
	}
}

// LoadStrokes reads a stroke list from a JSON file
func LoadStrokes(path string) ([]stroke.Stroke, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strokes file: %w", err)
	}

	var strokes []stroke.Stroke
	if err := json.Unmarshal(data, &strokes); err != nil {
		return nil, fmt.Errorf("failed to parse strokes file: %w", err)
	}
	return strokes, nil
}

// SaveStrokes writes a stroke list to a JSON file
func SaveStrokes(strokes []stroke.Stroke, path string) error {
	data, err := json.MarshalIndent(strokes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal strokes: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write strokes file: %w", err)
	}
	return nil
}
