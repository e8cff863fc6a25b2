package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVectorRepo 记录调用并在内存中保存片段
type fakeVectorRepo struct {
	ensured   int
	flushed   int
	segments  []*VectorSegment
	searchOut []*VectorSearchResult
	searchIn  *VectorSearchParams
}

func (f *fakeVectorRepo) EnsureNovelSegmentsCollection(context.Context) error {
	f.ensured++
	return nil
}

func (f *fakeVectorRepo) SearchSegments(_ context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error) {
	f.searchIn = params
	return f.searchOut, nil
}

func (f *fakeVectorRepo) InsertSegments(_ context.Context, _ string, segments []*VectorSegment) error {
	f.segments = append(f.segments, segments...)
	return nil
}

func (f *fakeVectorRepo) Flush(context.Context) error {
	f.flushed++
	return nil
}

func TestIndexInsertOneSegmentPerText(t *testing.T) {
	repo := &fakeVectorRepo{}
	emb := &fakeEmbedder{deflt: []float64{0.5, 0.5}}
	idx := NewIndex(emb, repo, "demo")

	err := idx.Insert(context.Background(), []string{"第一章定稿全文", "", "  ", "补充资料"})
	require.NoError(t, err)

	require.Len(t, repo.segments, 2)
	assert.Equal(t, "第一章定稿全文", repo.segments[0].TextContent)
	assert.Equal(t, "补充资料", repo.segments[1].TextContent)
	assert.NotEmpty(t, repo.segments[0].ID)
	assert.NotEqual(t, repo.segments[0].ID, repo.segments[1].ID)
	assert.Equal(t, "demo", repo.segments[0].Project)
	assert.Equal(t, []float32{0.5, 0.5}, repo.segments[0].Vector)

	assert.Equal(t, 1, repo.ensured)
	// 写入后立即落盘
	assert.Equal(t, 1, repo.flushed)
}

func TestIndexInsertAllEmptyIsNoop(t *testing.T) {
	repo := &fakeVectorRepo{}
	emb := &fakeEmbedder{deflt: []float64{1}}
	idx := NewIndex(emb, repo, "demo")

	require.NoError(t, idx.Insert(context.Background(), []string{"", "   "}))
	assert.Zero(t, repo.ensured)
	assert.Empty(t, repo.segments)
	assert.Zero(t, emb.calls)
}

func TestIndexQueryReturnsOrderedTexts(t *testing.T) {
	repo := &fakeVectorRepo{searchOut: []*VectorSearchResult{
		{ID: "a", Score: 0.92, TextContent: "最相关"},
		{ID: "b", Score: 0.71, TextContent: "次相关"},
	}}
	emb := &fakeEmbedder{deflt: []float64{1, 0}}
	idx := NewIndex(emb, repo, "demo")

	texts, err := idx.Query(context.Background(), "主角的暗线", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"最相关", "次相关"}, texts)
	require.NotNil(t, repo.searchIn)
	assert.Equal(t, "demo", repo.searchIn.Project)
	assert.Equal(t, 2, repo.searchIn.TopK)
}

func TestIndexQueryEmptyStore(t *testing.T) {
	repo := &fakeVectorRepo{}
	emb := &fakeEmbedder{deflt: []float64{1}}
	idx := NewIndex(emb, repo, "demo")

	texts, err := idx.Query(context.Background(), "任意查询", 2)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestIndexDisabled(t *testing.T) {
	var idx *Index
	assert.False(t, idx.Enabled())

	idx = NewIndex(nil, nil, "demo")
	err := idx.Insert(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrVectorDisabled)
	_, err = idx.Query(context.Background(), "x", 1)
	assert.ErrorIs(t, err, ErrVectorDisabled)
}
