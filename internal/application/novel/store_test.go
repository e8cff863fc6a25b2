package novel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-writer/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *ProjectStore {
	t.Helper()
	return NewProjectStore(storage.NewFileStore(), t.TempDir(), "demo")
}

func TestStoreLayout(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.WriteSetting("设定"))
	require.NoError(t, store.WriteDirectory("目录"))
	require.NoError(t, store.WriteOutline(3, "大纲"))
	require.NoError(t, store.WriteChapter(3, "正文"))

	assert.FileExists(t, filepath.Join(store.Root(), "Novel_setting.txt"))
	assert.FileExists(t, filepath.Join(store.Root(), "Novel_directory.txt"))
	assert.FileExists(t, filepath.Join(store.Root(), "outlines", "outline_3.txt"))
	assert.FileExists(t, filepath.Join(store.Root(), "chapters", "chapter_3.txt"))
}

func TestStoreReadMissingReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	setting, err := store.ReadSetting()
	require.NoError(t, err)
	assert.Empty(t, setting)

	chapter, err := store.ReadChapter(7)
	require.NoError(t, err)
	assert.Empty(t, chapter)
}

func TestStoreOverwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.WriteGlobalSummary("第一版"))
	require.NoError(t, store.WriteGlobalSummary("第二版"))

	got, err := store.ReadGlobalSummary()
	require.NoError(t, err)
	assert.Equal(t, "第二版", got)

	data, err := os.ReadFile(filepath.Join(store.Root(), "global_summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, "第二版", string(data))
}

func TestRecentChaptersPadsToWindow(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.WriteChapter(1, "一"))
	require.NoError(t, store.WriteChapter(2, "二"))

	// 第 2 章之前（含第 2 章）最近 3 章，从旧到新，不足则前部补空
	texts, err := store.RecentChapters(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "一", "二"}, texts)

	texts, err = store.RecentChapters(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, texts)
}
