package repository

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/basel-ax/bagtrainer/internal/domain"
)

// ImageRepository defines the interface for loading training photos
type ImageRepository interface {
	LoadImages(ctx context.Context, paths ...string) ([]domain.Image, error)
}

// Extensions accepted as training photos
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// FileImageRepository implements ImageRepository for the local filesystem
type FileImageRepository struct{}

// NewFileImageRepository creates a new filesystem image repository
func NewFileImageRepository() *FileImageRepository {
	return &FileImageRepository{}
}

// LoadImages reads every path, expanding directories one level deep.
// Files listed explicitly must have an accepted extension; files found in
// a directory are skipped when they do not. Directory entries are ordered
// by name.
func (r *FileImageRepository) LoadImages(ctx context.Context, paths ...string) ([]domain.Image, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		if !info.IsDir() {
			if !IsImageFile(p) {
				return nil, fmt.Errorf("%s is not a png or jpeg file", p)
			}
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !IsImageFile(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(p, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}

	images := make([]domain.Image, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		images = append(images, domain.Image{
			Filename:    filepath.Base(f),
			ContentType: DetectContentType(f, data),
			Data:        data,
		})
	}

	return images, nil
}

// IsImageFile reports whether name has a png or jpeg extension
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// DetectContentType sniffs data and falls back to the extension when the
// bytes are not recognised as an image.
func DetectContentType(name string, data []byte) string {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
