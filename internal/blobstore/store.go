// Package blobstore keeps uploaded bytes in a flat directory keyed by a
// generated, collision-resistant filename and serves inclusive byte ranges
// back out of it.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// tmpSuffix marks blobs still being written. They are never served or listed.
const tmpSuffix = ".tmp"

// DefaultMaxBytes is the upload ceiling used when none is configured.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// AllowedMimeTypes defines which file types are accepted.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
	"video/mp4":       true,
	"video/mpeg":      true,
	"video/quicktime": true,
	"video/webm":      true,
	"video/x-ms-wmv":  true,
	"video/x-msvideo": true,
}

// Blob describes a persisted upload.
type Blob struct {
	Filename string
	Path     string
	Size     int64
	MimeType string
}

// Store writes blobs under dir.
type Store struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func New(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, errors.New("blobstore: directory is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("blobstore: resolve %s: %w", dir, err)
	}
	return &Store{dir: abs, maxBytes: maxBytes, now: time.Now}, nil
}

// Dir returns the absolute blob directory.
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the configured size ceiling.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Put streams r into a new blob. The media type is checked before anything
// touches the disk; oversize streams leave no file behind.
func (s *Store) Put(ctx context.Context, r io.Reader, originalName, mimeType string) (*Blob, error) {
	mimeType = NormalizeMimeType(mimeType)
	if !AllowedMimeTypes[mimeType] {
		return nil, ErrUnsupportedMediaType
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := s.generateName(originalName)
	fullPath := filepath.Join(s.dir, name)
	tmpPath := fullPath + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	// One byte past the ceiling is enough to tell "too large" apart.
	limited := io.LimitReader(&ctxReader{ctx: ctx, r: r}, s.maxBytes+1)
	size, err := io.Copy(f, limited)
	if err == nil && size > s.maxBytes {
		err = ErrPayloadTooLarge
	}
	if err == nil && size == 0 {
		err = ErrEmptyFile
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(err, ErrPayloadTooLarge) || errors.Is(err, ErrEmptyFile) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to finalize file: %w", err)
	}

	return &Blob{
		Filename: name,
		Path:     fullPath,
		Size:     size,
		MimeType: mimeType,
	}, nil
}

// StatSize returns the byte length of the blob.
func (s *Store) StatSize(handle string) (int64, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stat %s: %w", handle, err)
	}
	if info.IsDir() {
		return 0, ErrNotFound
	}
	return info.Size(), nil
}

// ReadRange opens the inclusive span [start, end]. A negative end means the
// last byte of the blob; an end past the blob is clamped.
func (s *Store) ReadRange(handle string, start, end int64) (io.ReadCloser, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", handle, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", handle, err)
	}
	size := info.Size()

	if end < 0 || end >= size {
		end = size - 1
	}
	if start < 0 || start > end || start >= size {
		f.Close()
		return nil, ErrInvalidRange
	}

	return &sectionReadCloser{
		SectionReader: io.NewSectionReader(f, start, end-start+1),
		f:             f,
	}, nil
}

// Exists reports whether handle resolves to a stored blob.
func (s *Store) Exists(handle string) bool {
	_, err := s.StatSize(handle)
	return err == nil
}

// List returns the names of all finished blobs.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *Store) resolve(handle string) (string, error) {
	if handle == "" || handle != filepath.Base(handle) || handle == "." || handle == ".." ||
		strings.ContainsAny(handle, `/\`) || strings.HasSuffix(handle, tmpSuffix) {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, handle), nil
}

// generateName builds "<unix-millis>-<random>-<sanitized original>".
func (s *Store) generateName(originalName string) string {
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), uid, sanitizeName(originalName))
}

// NormalizeMimeType strips parameters and lower-cases the media type.
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		return parsed
	}
	return strings.ToLower(strings.Split(mimeType, ";")[0])
}

// DetectMimeType prefers the declared type and sniffs head when the client
// sent nothing useful.
func DetectMimeType(declared string, head []byte) string {
	declared = NormalizeMimeType(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return NormalizeMimeType(mimetype.Detect(head).String())
}

// SniffReader reads the first 512 bytes of r for DetectMimeType and returns a
// reader that still yields the full stream.
func SniffReader(r io.Reader) ([]byte, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	head = head[:n]
	return head, io.MultiReader(bytes.NewReader(head), r), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	clean := func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}
	stem = strings.Map(clean, stem)
	ext = strings.Map(func(r rune) rune {
		if r == '.' {
			return r
		}
		return clean(r)
	}, ext)

	if len(stem) > 40 {
		stem = stem[:40]
	}
	if stem == "" || stem == "." {
		stem = "file"
	}
	if len(ext) > 10 {
		ext = ext[:10]
	}
	if ext == tmpSuffix {
		ext = "_tmp"
	}
	return stem + ext
}

type sectionReadCloser struct {
	*io.SectionReader
	f *os.File
}

func (s *sectionReadCloser) Close() error { return s.f.Close() }

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
