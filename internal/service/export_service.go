package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/storage"
)

// ExportLink is a signed, expiring download reference.
type ExportLink struct {
	ExportID  string    `json:"exportId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportService renders timetable exports to disk and hands out signed
// download tokens, so large files are fetched without an Authorization
// header.
type ExportService struct {
	records map[string]*RecordService
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
}

// NewExportService constructs an ExportService over the record services,
// keyed by collection name.
func NewExportService(records map[string]*RecordService, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{records: records, storage: store, signer: signer, logger: logger}
}

// CreateLink renders the export file and returns a signed token for it.
func (s *ExportService) CreateLink(ctx context.Context, collection, department, semester, shift, format string) (*ExportLink, error) {
	svc, ok := s.records[collection]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown collection %q", collection))
	}

	out, _, err := svc.Export(ctx, department, semester, shift, format)
	if err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s.%s", exportID, format)
	if _, err := s.storage.Save(filename, out); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.logger.Debug("export link created", zap.String("exportId", exportID), zap.String("collection", collection))
	return &ExportLink{ExportID: exportID, Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve validates a download token and returns the on-disk path.
func (s *ExportService) Resolve(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	f, err := s.storage.Open(relPath)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	path := f.Name()
	f.Close()
	return path, nil
}

// CleanupExpired removes export files older than the signer TTL.
func (s *ExportService) CleanupExpired(ttl time.Duration) {
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("removed stale export files", zap.Int("count", len(removed)))
	}
}
