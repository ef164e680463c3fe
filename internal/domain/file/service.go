package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"

	"filecatalog/internal/blobstore"
	"filecatalog/internal/metrics"
	"filecatalog/internal/realtime"
)

// Blobs is the part of the blob store the catalog uses.
type Blobs interface {
	Put(ctx context.Context, r io.Reader, originalName, mimeType string) (*blobstore.Blob, error)
	StatSize(handle string) (int64, error)
	ReadRange(handle string, start, end int64) (io.ReadCloser, error)
}

// Publisher receives catalog change events.
type Publisher interface {
	Publish(ev realtime.Event)
}

// PublicPathPrefix is the route every shareable link points at.
const PublicPathPrefix = "/api/files/public/"

// Service ties the blob store and the catalog together.
// Blob writes are never rolled back: a record failure after a successful
// write leaves an orphan that cmd/orphans reports.
type Service struct {
	repo          Repository
	blobs         Blobs
	events        Publisher
	lookup        *LookupCache
	publicBaseURL string
}

func NewService(repo Repository, blobs Blobs, events Publisher, lookup *LookupCache, publicBaseURL string) *Service {
	return &Service{
		repo:          repo,
		blobs:         blobs,
		events:        events,
		lookup:        lookup,
		publicBaseURL: publicBaseURL,
	}
}

// Upload stores the content and records it with the given tags.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*File, error) {
	tags := ParseTags(in.Tags)
	if len(tags) == 0 {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: tags are required", ErrValidation)
	}

	blob, err := s.blobs.Put(ctx, in.Content, in.OriginalName, in.MimeType)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(uploadResult(err)).Inc()
		return nil, err
	}

	record := &File{
		Filename:     blob.Filename,
		Filepath:     blob.Path,
		OriginalName: in.OriginalName,
		MimeType:     blob.MimeType,
		Size:         blob.Size,
		Tags:         tags,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		log.Printf("upload_orphaned_blob filename=%s size=%d error=%q", blob.Filename, blob.Size, err)
		metrics.UploadsTotal.WithLabelValues("persistence_error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	s.lookup.Add(record)
	s.publish(realtime.Event{
		Type:     realtime.EventFileUploaded,
		FileID:   record.ID,
		Filename: record.Filename,
		Data:     record,
	})
	return record, nil
}

// List returns every record ordered by order, then creation sequence.
func (s *Service) List(ctx context.Context) ([]File, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*File, error) {
	return s.repo.FindByID(ctx, id)
}

// Reorder applies order = position to every listed id atomically.
func (s *Service) Reorder(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: reorderedFiles must not be empty", ErrValidation)
	}

	matched, err := s.repo.Reorder(ctx, ids)
	if err != nil {
		metrics.ReordersTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	if matched < int64(len(ids)) {
		log.Printf("catalog_reorder_partial requested=%d matched=%d", len(ids), matched)
	}

	metrics.ReordersTotal.WithLabelValues("ok").Inc()
	s.publish(realtime.Event{
		Type: realtime.EventCatalogReordered,
		Data: ReorderResponse{Matched: matched},
	})
	return matched, nil
}

// GenerateShareableLink builds the public URL for a record, stores it and
// returns it. requestBase ("scheme://host") is used when no public base URL
// is configured. Calling it again yields the same link.
func (s *Service) GenerateShareableLink(ctx context.Context, id, requestBase string) (string, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	base := s.publicBaseURL
	if base == "" {
		base = requestBase
	}
	link := base + PublicPathPrefix + url.PathEscape(f.Filename)

	if err := s.repo.SetShareableLink(ctx, id, link); err != nil {
		return "", err
	}

	s.publish(realtime.Event{
		Type:     realtime.EventShareLinkCreated,
		FileID:   f.ID,
		Filename: f.Filename,
		Data:     map[string]string{"shareable_link": link},
	})
	return link, nil
}

func (s *Service) IncrementViewByID(ctx context.Context, id string) error {
	if err := s.repo.IncrementViewsByID(ctx, id); err != nil {
		return err
	}
	metrics.ViewsTotal.WithLabelValues("id").Inc()
	s.publish(realtime.Event{Type: realtime.EventFileViewed, FileID: id})
	return nil
}

// IncrementViewByFilename reports ErrFileNotFound when no record has the
// filename.
func (s *Service) IncrementViewByFilename(ctx context.Context, filename string) error {
	if err := s.repo.IncrementViewsByFilename(ctx, filename); err != nil {
		return err
	}
	metrics.ViewsTotal.WithLabelValues("filename").Inc()
	s.publish(realtime.Event{Type: realtime.EventFileViewed, Filename: filename})
	return nil
}

// Lookup resolves the immutable metadata of a blob, through the cache.
func (s *Service) Lookup(ctx context.Context, filename string) (BlobInfo, error) {
	if info, ok := s.lookup.Get(filename); ok {
		return info, nil
	}
	f, err := s.repo.FindByFilename(ctx, filename)
	if err != nil {
		return BlobInfo{}, err
	}
	s.lookup.Add(f)
	return BlobInfo{FileID: f.ID, MimeType: f.MimeType, OriginalName: f.OriginalName}, nil
}

func (s *Service) publish(ev realtime.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func uploadResult(err error) string {
	switch {
	case errors.Is(err, blobstore.ErrUnsupportedMediaType):
		return "unsupported_media_type"
	case errors.Is(err, blobstore.ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, blobstore.ErrEmptyFile):
		return "empty"
	default:
		return "storage_error"
	}
}
