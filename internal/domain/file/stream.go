package file

import (
	"context"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"filecatalog/internal/blobstore"
	"filecatalog/internal/metrics"
	"filecatalog/internal/pkg/byterange"
	"filecatalog/internal/pkg/response"
)

// StreamError is returned by Streamer.Serve before any byte of the response
// has been written, so the caller can still render an error envelope.
type StreamError struct {
	Status  int
	Code    string
	Message string
}

func (e *StreamError) Error() string { return e.Message }

// Streamer answers whole-file and single-range reads of stored blobs.
type Streamer struct {
	blobs  Blobs
	lookup func(ctx context.Context, filename string) (BlobInfo, error)
}

func NewStreamer(blobs Blobs, service *Service) *Streamer {
	return &Streamer{blobs: blobs, lookup: service.Lookup}
}

// Serve writes filename to w honoring the Range header of r. HEAD requests
// get headers only.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, filename string) *StreamError {
	size, err := s.blobs.StatSize(filename)
	if err != nil {
		return s.storeError(err, filename, 0, w)
	}

	status := http.StatusOK
	span := byterange.Range{Start: 0, End: size - 1}
	if header := r.Header.Get("Range"); header != "" {
		span, err = byterange.Parse(header, size)
		if err != nil {
			return s.unsatisfiable(w, size)
		}
		status = http.StatusPartialContent
	}

	var body io.ReadCloser
	if size > 0 {
		body, err = s.blobs.ReadRange(filename, span.Start, span.End)
		if err != nil {
			return s.storeError(err, filename, size, w)
		}
		defer body.Close()
	}

	h := w.Header()
	h.Set("Content-Type", s.contentType(r.Context(), filename))
	h.Set("Accept-Ranges", "bytes")
	if size > 0 {
		h.Set("Content-Length", strconv.FormatInt(span.Length(), 10))
	} else {
		h.Set("Content-Length", "0")
	}
	if status == http.StatusPartialContent {
		h.Set("Content-Range", span.ContentRange(size))
	}
	w.WriteHeader(status)
	metrics.StreamResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	if r.Method == http.MethodHead || body == nil {
		return nil
	}

	n, err := io.Copy(w, body)
	metrics.StreamBytesTotal.Add(float64(n))
	if err != nil {
		log.Printf("stream_aborted filename=%s sent=%d error=%q", filename, n, err)
	}
	return nil
}

func (s *Streamer) unsatisfiable(w http.ResponseWriter, size int64) *StreamError {
	w.Header().Set("Content-Range", byterange.Unsatisfied(size))
	metrics.StreamResponsesTotal.WithLabelValues(strconv.Itoa(http.StatusRequestedRangeNotSatisfiable)).Inc()
	return &StreamError{
		Status:  http.StatusRequestedRangeNotSatisfiable,
		Code:    response.CodeInvalidRange,
		Message: "Requested range not satisfiable",
	}
}

func (s *Streamer) storeError(err error, filename string, size int64, w http.ResponseWriter) *StreamError {
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		metrics.StreamResponsesTotal.WithLabelValues(strconv.Itoa(http.StatusNotFound)).Inc()
		return &StreamError{Status: http.StatusNotFound, Code: response.CodeNotFound, Message: "File not found"}
	case errors.Is(err, blobstore.ErrInvalidRange):
		return s.unsatisfiable(w, size)
	default:
		log.Printf("stream_failed filename=%s error=%q", filename, err)
		metrics.StreamResponsesTotal.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		return &StreamError{Status: http.StatusInternalServerError, Code: response.CodeInternal, Message: "Failed to read file"}
	}
}

// contentType prefers the recorded media type and falls back to the file
// extension for blobs without a catalog record.
func (s *Streamer) contentType(ctx context.Context, filename string) string {
	if s.lookup != nil {
		if info, err := s.lookup(ctx, filename); err == nil && info.MimeType != "" {
			return info.MimeType
		}
	}
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
