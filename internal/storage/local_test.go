package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveOpenRemove(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads")

	saved, err := store.Save(DirAttachments, "Report.PDF", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.Size)
	assert.True(t, strings.HasSuffix(saved.StoredName, ".pdf"))
	assert.Equal(t, "/uploads/attachments/"+saved.StoredName, saved.Path)

	rc, err := store.Open(saved.Path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove(saved.Path))
	_, err = os.Stat(filepath.Join(store.Root(), DirAttachments, saved.StoredName))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(saved.Path), "removing twice is fine")
}

func TestSaveGeneratesDistinctNames(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "")

	a, err := store.Save(DirProfiles, "me.png", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.Save(DirProfiles, "me.png", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.StoredName, b.StoredName)
}

func TestPathsOutsideTheStoreAreRejected(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads")

	_, err := store.Save("../etc", "x", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = store.Open("/uploads/../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Open("/elsewhere/file")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
