package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMissingReturnsEmpty(t *testing.T) {
	s := NewFileStore()

	got, err := s.Read(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteCreatesParentDirs(t *testing.T) {
	s := NewFileStore()
	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")

	require.NoError(t, s.Write(path, "内容"))

	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "内容", got)
}

func TestWriteOverwrites(t *testing.T) {
	s := NewFileStore()
	path := filepath.Join(t.TempDir(), "f.txt")

	require.NoError(t, s.Write(path, "这是第一版内容，比较长"))
	require.NoError(t, s.Write(path, "短"))

	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "短", got)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := NewFileStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")

	require.NoError(t, s.Write(path, "第一版"))
	require.NoError(t, s.Write(path, "第二版"))

	// 写入走临时文件加 rename，目录里只应剩目标文件
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f.txt", entries[0].Name())

	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "第二版", got)
}

func TestClear(t *testing.T) {
	s := NewFileStore()
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, s.Write(path, "x"))

	require.NoError(t, s.Clear(path))
	assert.False(t, s.Exists(path))

	// 清除不存在的文件不算错误
	require.NoError(t, s.Clear(path))
}
