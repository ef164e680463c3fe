package file

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is one catalog record. The blob it points at lives in the blob store
// under Filename.
type File struct {
	ID            string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Filename      string    `gorm:"column:filename;size:255;not null;uniqueIndex" json:"filename"`
	Filepath      string    `gorm:"column:filepath;not null" json:"filepath"`
	OriginalName  string    `gorm:"column:original_name" json:"original_name"`
	MimeType      string    `gorm:"column:mime_type;size:127" json:"mime_type"`
	Size          int64     `gorm:"column:size" json:"size"`
	Tags          []string  `gorm:"column:tags;type:text;serializer:json" json:"tags"`
	Views         int64     `gorm:"column:views;not null;default:0" json:"views"`
	ShareableLink *string   `gorm:"column:shareable_link" json:"shareable_link,omitempty"`
	Order         int64     `gorm:"column:sort_order;not null;index" json:"order"`
	Seq           int64     `gorm:"column:seq;not null;uniqueIndex" json:"-"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (File) TableName() string { return "files" }

func (f *File) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	return nil
}

// sequence is a named monotonic counter. The files sequence hands out the
// initial order (and the immutable seq) of every new record.
type sequence struct {
	Name  string `gorm:"column:name;primaryKey;size:64"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

func (sequence) TableName() string { return "catalog_sequences" }

const filesSequence = "files"

// Migrate creates or updates the catalog tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&File{}, &sequence{})
}
