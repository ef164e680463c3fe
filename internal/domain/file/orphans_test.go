package file

import (
	"context"
	"strings"
	"testing"

	"filecatalog/internal/blobstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditStorage(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	store, err := blobstore.New(t.TempDir(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	kept, err := store.Put(ctx, strings.NewReader("kept"), "kept.txt", "text/plain")
	require.NoError(t, err)
	orphan, err := store.Put(ctx, strings.NewReader("orphan"), "orphan.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, &File{Filename: kept.Filename, Filepath: kept.Path, Tags: []string{"t"}}))
	require.NoError(t, repo.Create(ctx, &File{Filename: "gone.txt", Filepath: "/nowhere", Tags: []string{"t"}}))

	audit, err := AuditStorage(ctx, repo, store)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan.Filename}, audit.Orphans)
	require.Len(t, audit.Dangling, 1)
	assert.Equal(t, "gone.txt", audit.Dangling[0].Filename)
}
