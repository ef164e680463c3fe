package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)

	for _, op := range []Operation{OpUpload, OpList, OpReorder, OpEvents} {
		assert.True(t, p.RequiresAuth(op), op)
	}
	for _, op := range []Operation{OpStream, OpShareLink, OpViewByID, OpViewByFilename} {
		assert.False(t, p.RequiresAuth(op), op)
	}
	assert.True(t, p.RequiresAuth(Operation("something_new")))
}

func TestNewPolicy_Overrides(t *testing.T) {
	p, err := NewPolicy(map[string]bool{"Share_Link": true, "list": false})
	require.NoError(t, err)

	assert.True(t, p.RequiresAuth(OpShareLink))
	assert.False(t, p.RequiresAuth(OpList))
}

func TestNewPolicy_UnknownOperation(t *testing.T) {
	_, err := NewPolicy(map[string]bool{"delete": true})
	assert.Error(t, err)
}

func TestPolicy_String(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)

	assert.Equal(t,
		"events=true,list=true,reorder=true,share_link=false,stream=false,upload=true,view_by_filename=false,view_by_id=false",
		p.String())
}
