package service

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/storage"
)

// UploadService stores chat and question images on local disk behind an
// image-only MIME allow-list.
type UploadService struct {
	storage     *storage.LocalStorage
	logger      *zap.Logger
	maxFiles    int
	maxFileSize int64
	allowed     map[string]struct{}
}

// NewUploadService constructs an UploadService.
func NewUploadService(store *storage.LocalStorage, logger *zap.Logger, maxFiles int, maxFileSize int64, allowedMIMEs []string) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFiles <= 0 {
		maxFiles = 3
	}
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	allowed := make(map[string]struct{}, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &UploadService{
		storage:     store,
		logger:      logger,
		maxFiles:    maxFiles,
		maxFileSize: maxFileSize,
		allowed:     allowed,
	}
}

// Store validates and persists a batch of uploaded images, returning the
// stored filenames. The whole batch is rejected on the first invalid file.
func (s *UploadService) Store(files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files uploaded")
	}
	if len(files) > s.maxFiles {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d files per upload", s.maxFiles))
	}

	for _, fh := range files {
		if fh.Size > s.maxFileSize {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds the %d byte limit", fh.Filename, s.maxFileSize))
		}
		if !s.allowedType(fh.Header.Get("Content-Type")) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not an allowed image type", fh.Filename))
		}
	}

	names := make([]string, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
		}
		name := fmt.Sprintf("%d-%s%s", time.Now().Unix(), uuid.NewString(), strings.ToLower(filepath.Ext(fh.Filename)))
		_, err = s.storage.SaveStream(name, src)
		src.Close()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store upload")
		}
		names = append(names, name)
	}

	s.logger.Debug("stored uploads", zap.Int("count", len(names)))
	return names, nil
}

// Open returns the stored file for serving.
func (s *UploadService) Open(name string) (string, error) {
	f, err := s.storage.Open(name)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	path := f.Name()
	f.Close()
	return path, nil
}

func (s *UploadService) allowedType(contentType string) bool {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if len(s.allowed) == 0 {
		return strings.HasPrefix(mime, "image/")
	}
	_, ok := s.allowed[mime]
	return ok
}
