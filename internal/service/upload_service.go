package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/domain"
	"github.com/asafe/user-service/internal/storage"
	apperrors "github.com/asafe/user-service/pkg/util"
)

const profilePicturePrefix = "profile-pictures"

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// UploadInput describes a profile picture upload.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadService stores profile pictures in object storage.
type UploadService struct {
	store    storage.ObjectStore
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadService constructs the service.
func NewUploadService(store storage.ObjectStore, maxBytes int64, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{store: store, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// UploadProfilePicture validates and stores an image, returning its public URL.
func (s *UploadService) UploadProfilePicture(ctx context.Context, principal *domain.Principal, in UploadInput) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(in.ContentType, ";")[0]))
	if _, ok := allowedImageTypes[contentType]; !ok {
		return "", apperrors.NewValidationError("Invalid file type", map[string]any{"allowed": []string{"image/jpeg", "image/png"}})
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return "", apperrors.NewValidationError("File too large", map[string]any{"max_bytes": s.maxBytes})
	}

	name := sanitizeFileName(in.FileName)
	if name == "" {
		return "", apperrors.NewValidationError("No file uploaded", nil)
	}

	key := fmt.Sprintf("%s/%d-%s", profilePicturePrefix, s.now().UnixMilli(), name)
	url, err := s.store.Put(ctx, key, in.Body, in.Size, contentType)
	if err != nil {
		s.logger.Error("profile picture upload failed", zap.Int64("user_id", principal.ID), zap.String("key", key), zap.Error(err))
		return "", apperrors.NewInternalError(err)
	}

	s.logger.Info("profile picture uploaded", zap.Int64("user_id", principal.ID), zap.String("key", key))
	return url, nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
