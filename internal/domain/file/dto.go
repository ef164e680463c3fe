package file

import (
	"io"
	"strings"
)

// UploadInput carries one multipart upload into the service.
type UploadInput struct {
	Content      io.Reader
	OriginalName string
	MimeType     string
	Tags         string
}

// ReorderItem identifies one record in a reorder batch. Older clients send
// the key as "_id".
type ReorderItem struct {
	ID       string `json:"id" validate:"required_without=LegacyID"`
	LegacyID string `json:"_id" validate:"required_without=ID"`
}

func (i ReorderItem) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.LegacyID
}

type ReorderRequest struct {
	ReorderedFiles []ReorderItem `json:"reorderedFiles" validate:"required,min=1,dive"`
}

// IDs returns the batch keys in request order.
func (r ReorderRequest) IDs() []string {
	ids := make([]string, 0, len(r.ReorderedFiles))
	for _, item := range r.ReorderedFiles {
		ids = append(ids, item.Key())
	}
	return ids
}

type ReorderResponse struct {
	Matched int64 `json:"matched"`
}

// ParseTags splits a comma separated tag string, trimming whitespace and
// dropping empty entries.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
