package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/internal/storage"
)

const (
	defaultMaxUploadBytes = 5 << 20
	sniffLen              = 512
)

// imageExtensions maps the sniffed content type to the stored extension.
// Anything else, including SVG, is rejected.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadService validates and stores item images.
type UploadService struct {
	store    storage.Storage
	maxBytes int64
}

func NewUploadService(store storage.Storage, maxBytes int64) (*UploadService, error) {
	if store == nil {
		return nil, fmt.Errorf("storage backend is required for UploadService")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadService{store: store, maxBytes: maxBytes}, nil
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// UploadImage stores an image under a fresh xid-based name. The type is taken
// from the file content; the client's name and Content-Type are not trusted.
func (s *UploadService) UploadImage(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*storage.UploadResult, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, fmt.Errorf("%w: only image files are allowed", apperrors.ErrValidation)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty file", apperrors.ErrValidation)
	}
	if size > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrValidation, s.maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: unreadable file", apperrors.ErrValidation)
	}
	head = head[:n]
	detected := http.DetectContentType(head)
	ext, ok := imageExtensions[detected]
	if !ok {
		log.Ctx(ctx).Warn().Str("filename", filename).Str("declared", contentType).Str("detected", detected).
			Msg("[UploadService] Rejected non-image upload")
		return nil, fmt.Errorf("%w: only JPEG, PNG, GIF or WebP images are allowed", apperrors.ErrValidation)
	}

	key := xid.New().String() + ext
	content := io.MultiReader(bytes.NewReader(head), body)
	result, err := s.store.Upload(ctx, key, io.LimitReader(content, s.maxBytes), size, detected)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	log.Ctx(ctx).Info().Str("key", result.Key).Int64("size", result.Size).Msg("[UploadService] Image stored")
	return result, nil
}
