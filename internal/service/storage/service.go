package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/pkg/errors"
	"github.com/yenceelabs/speak-to-slides/pkg/util"
)

// Service stores owner-uploaded slide images on local disk and hands
// back the URL the renderer embeds.
type Service struct {
	basePath string
	baseURL  string
	logger   *logger.Logger
}

func New(basePath, baseURL string, log *logger.Logger) *Service {
	return &Service{
		basePath: basePath,
		baseURL:  baseURL,
		logger:   log,
	}
}

// Dir is the on-disk root the router serves statically.
func (s *Service) Dir() string {
	return s.basePath
}

// SaveImage writes image bytes for one slide of one deck. The extension
// comes from content sniffing, never from the caller's filename.
func (s *Service) SaveImage(deckID string, slideIndex int, data []byte) (string, error) {
	ext := detectImageExtension(data)
	if ext == "" {
		return "", errors.New(errors.ErrCodeValidation, "unsupported image format")
	}

	dir := filepath.Join(s.basePath, "deck-images", deckID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to create upload directory")
	}

	filename := fmt.Sprintf("slide-%d-%s%s", slideIndex, util.RandomSuffix(12), ext)
	filePath := filepath.Join(dir, filename)

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to write image file")
	}

	url := fmt.Sprintf("%s/deck-images/%s/%s", s.baseURL, deckID, filename)
	s.logger.Info("saved slide image", "path", filePath, "url", url, "size", len(data))

	return url, nil
}

// detectImageExtension sniffs the magic bytes of the supported formats;
// empty string means the payload is not an accepted image.
func detectImageExtension(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return ".jpg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return ".png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return ".gif"
	}
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 {
		return ".webp"
	}
	return ""
}
