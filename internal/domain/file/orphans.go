package file

import (
	"context"
	"sort"
)

// BlobLister enumerates stored blob names.
type BlobLister interface {
	List() ([]string, error)
}

// Audit compares the blob store with the catalog.
type Audit struct {
	// Orphans are blobs without a catalog record, left behind when the
	// record write failed after the blob was stored.
	Orphans []string
	// Dangling are records whose blob is gone.
	Dangling []File
}

// AuditStorage lists orphaned blobs and dangling records.
func AuditStorage(ctx context.Context, repo Repository, blobs BlobLister) (*Audit, error) {
	names, err := blobs.List()
	if err != nil {
		return nil, err
	}
	files, err := repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(names))
	for _, n := range names {
		onDisk[n] = true
	}
	recorded := make(map[string]bool, len(files))

	audit := &Audit{}
	for _, f := range files {
		recorded[f.Filename] = true
		if !onDisk[f.Filename] {
			audit.Dangling = append(audit.Dangling, f)
		}
	}
	for _, n := range names {
		if !recorded[n] {
			audit.Orphans = append(audit.Orphans, n)
		}
	}
	sort.Strings(audit.Orphans)
	return audit, nil
}
