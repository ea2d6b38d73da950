package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalFileStorage(dir, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "statements/1-S0001.xlsx", []byte("v1")))
	require.NoError(t, s.Save(ctx, "statements/1-S0001.xlsx", []byte("v2")))
	assert.True(t, s.Exists(ctx, "statements/1-S0001.xlsx"))

	got, err := s.Read(ctx, "statements/1-S0001.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	entries, err := os.ReadDir(filepath.Join(dir, "statements"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, s.Delete(ctx, "statements/1-S0001.xlsx"))
	assert.False(t, s.Exists(ctx, "statements/1-S0001.xlsx"))
	require.NoError(t, s.Delete(ctx, "statements/1-S0001.xlsx"))
}

func TestLocalFileStorage_RejectsEscapes(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, s.Save(ctx, "../outside.xlsx", []byte("x")), ErrPathEscapes)
	assert.ErrorIs(t, s.Save(ctx, "", []byte("x")), ErrPathEscapes)
	_, err := s.Read(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathEscapes)
	assert.False(t, s.Exists(ctx, "../x"))
}

func TestLocalFileStorage_CancelledContext(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, "a.xlsx", []byte("x")), context.Canceled)
}
