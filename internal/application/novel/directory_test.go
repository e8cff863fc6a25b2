package novel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "z-novel-writer/pkg/errors"
)

const sampleDirectory = `第1章 《灯塔下的信》：守塔人收到一封没有署名的信。
第2章 《雾夜来客》：暴风雨夜，一位陌生人敲响塔门。
第 3 章 退潮
礁石间露出半艘沉船，信的笔迹有了着落。
第4章 终章：所有暗线收束。`

func TestParseDirectory(t *testing.T) {
	chapters := ParseDirectory(sampleDirectory)
	require.Len(t, chapters, 4)

	assert.Equal(t, 1, chapters[0].Number)
	assert.Equal(t, "灯塔下的信", chapters[0].Title)
	assert.Equal(t, "守塔人收到一封没有署名的信。", chapters[0].Brief)

	// 无书名号时以冒号分隔标题与简述
	assert.Equal(t, "终章", chapters[3].Title)
	assert.Equal(t, "所有暗线收束。", chapters[3].Brief)

	// 章节号允许夹带空格；后续描述行并入简述
	assert.Equal(t, 3, chapters[2].Number)
	assert.Equal(t, "退潮", chapters[2].Title)
	assert.Contains(t, chapters[2].Brief, "沉船")
}

func TestLookupChapter(t *testing.T) {
	meta, err := LookupChapter(sampleDirectory, 2)
	require.NoError(t, err)
	assert.Equal(t, "雾夜来客", meta.Title)

	_, err = LookupChapter(sampleDirectory, 99)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeChapterNotFound, apperrors.AsAppError(err).Code)
}

func TestLookupChapterMissKeepsDetailsIsolated(t *testing.T) {
	_, err7 := LookupChapter(sampleDirectory, 7)
	_, err9 := LookupChapter(sampleDirectory, 9)
	require.Error(t, err7)
	require.Error(t, err9)

	// 每次未命中都是独立的错误实例，detail 互不串扰
	assert.Contains(t, apperrors.AsAppError(err7).Detail, "chapter 7")
	assert.Contains(t, apperrors.AsAppError(err9).Detail, "chapter 9")
	assert.Empty(t, apperrors.ErrChapterNotFound.Detail)
}

func TestParseDirectoryEmpty(t *testing.T) {
	assert.Empty(t, ParseDirectory(""))
	assert.Empty(t, ParseDirectory("这里没有任何章节行"))
}
