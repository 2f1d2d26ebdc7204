// Package admin drives the backend's ingestion and history endpoints.
package admin

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	"github.com/zhouzirui/ragdesk/backend/internal/model/admin"
	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	"github.com/zhouzirui/ragdesk/backend/internal/service/events"
	"github.com/zhouzirui/ragdesk/backend/internal/store/remote"
)

var ErrFilenameRequired = errors.New("filename is required")

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000

	filesCacheKey = "files"
)

// Backend is the subset of the rag client the console uses.
type Backend interface {
	Ingest(ctx context.Context, uploads []rag.Upload) (admin.IngestResult, error)
	Files(ctx context.Context) ([]string, error)
	DeleteFile(ctx context.Context, filename string) (rag.DeleteResult, error)
	History(ctx context.Context, limit int) ([]admin.HistoryItem, error)
	ClearHistory(ctx context.Context) error
	Health(ctx context.Context) (admin.Health, error)
}

// Service caches the file list and keeps a copy of every upload in the
// bucket when one is configured.
type Service struct {
	backend Backend
	bucket  remote.Bucket
	cache   *cache.Cache // nil when caching is off
	events  events.Publisher
	logger  logger.Logger
	now     func() time.Time
}

// Options configure a Service. Bucket, Events and Logger are optional.
type Options struct {
	Bucket remote.Bucket
	// FilesCacheTTL of zero disables the file list cache.
	FilesCacheTTL time.Duration
	Events        events.Publisher
	Logger        logger.Logger
}

func NewService(backend Backend, opts Options) *Service {
	var files *cache.Cache
	if ttl := opts.FilesCacheTTL; ttl > 0 {
		files = cache.New(ttl, 2*ttl)
	}
	pub := opts.Events
	if pub == nil {
		pub = events.Nop{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		backend: backend,
		bucket:  opts.Bucket,
		cache:   files,
		events:  pub,
		logger:  log,
		now:     time.Now,
	}
}

// Ingest uploads files to the bucket, then to the backend.
func (s *Service) Ingest(ctx context.Context, uploads []rag.Upload) (admin.IngestResult, error) {
	if s.bucket != nil {
		for _, u := range uploads {
			key := remote.ObjectKey(s.now(), u.Name)
			if err := s.bucket.Put(ctx, key, bytes.NewReader(u.Data)); err != nil {
				return admin.IngestResult{}, err
			}
			s.logger.Debug("Admin", "Upload stored", map[string]interface{}{"key": key, "bytes": len(u.Data)})
		}
	}

	result, err := s.backend.Ingest(ctx, uploads)
	if err != nil {
		s.logger.Warn("Admin", "Ingest failed", map[string]interface{}{"files": len(uploads), "error": err.Error()})
		return admin.IngestResult{}, err
	}

	s.invalidateFiles()
	s.logger.Info("Admin", "Files ingested", map[string]interface{}{
		"files":        len(uploads),
		"chunks_added": result.ChunksAdded,
		"errors":       len(result.Errors),
	})
	s.events.Publish(events.New(events.FilesChanged, "", result))
	return result, nil
}

// Files returns the ingested filenames, served from cache while fresh.
func (s *Service) Files(ctx context.Context) ([]string, error) {
	if s.cache == nil {
		return s.backend.Files(ctx)
	}
	if cached, ok := s.cache.Get(filesCacheKey); ok {
		return append([]string(nil), cached.([]string)...), nil
	}
	files, err := s.backend.Files(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(filesCacheKey, append([]string(nil), files...))
	return files, nil
}

func (s *Service) DeleteFile(ctx context.Context, filename string) (rag.DeleteResult, error) {
	if filename == "" {
		return rag.DeleteResult{}, ErrFilenameRequired
	}
	result, err := s.backend.DeleteFile(ctx, filename)
	if err != nil {
		return rag.DeleteResult{}, err
	}
	s.invalidateFiles()
	s.logger.Info("Admin", "File deleted", map[string]interface{}{"filename": filename})
	s.events.Publish(events.New(events.FilesChanged, "", result))
	return result, nil
}

// History returns up to limit exchanges, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]admin.HistoryItem, error) {
	return s.backend.History(ctx, ClampHistoryLimit(limit))
}

func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.backend.ClearHistory(ctx); err != nil {
		return err
	}
	s.logger.Info("Admin", "History cleared", nil)
	s.events.Publish(events.New(events.HistoryCleared, "", nil))
	return nil
}

func (s *Service) Health(ctx context.Context) (admin.Health, error) {
	return s.backend.Health(ctx)
}

// ClampHistoryLimit maps a non-positive limit to the default and caps it at
// the backend's maximum.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func (s *Service) invalidateFiles() {
	if s.cache == nil {
		return
	}
	s.cache.Delete(filesCacheKey)
}
