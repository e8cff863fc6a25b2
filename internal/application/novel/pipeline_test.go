package novel

import (
	"context"
	"io"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"z-novel-writer/internal/application/generation"
	"z-novel-writer/internal/application/retrieval"
	"z-novel-writer/internal/workflow/prompt"
)

// queueGenerator 依次弹出预置回复；流式回复自动携带终止符
type queueGenerator struct {
	responses []string
	prompts   []string
}

func (g *queueGenerator) pop() string {
	if len(g.responses) == 0 {
		return ""
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp
}

func (g *queueGenerator) record(msgs []generation.Message) {
	for _, m := range msgs {
		g.prompts = append(g.prompts, m.Content)
	}
}

func (g *queueGenerator) Invoke(_ context.Context, msgs []generation.Message) (string, error) {
	g.record(msgs)
	return g.pop(), nil
}

func (g *queueGenerator) Stream(_ context.Context, msgs []generation.Message) (generation.TextStream, error) {
	g.record(msgs)
	return &queueStream{chunks: []string{g.pop(), "\n" + generation.Sentinel}}, nil
}

type queueStream struct {
	chunks []string
	pos    int
}

func (s *queueStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *queueStream) Close() {}

// constEmbedder 所有文本映射到同一向量
type constEmbedder struct{}

func (constEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

// memoryVectorRepo 内存向量库
type memoryVectorRepo struct {
	segments  []*retrieval.VectorSegment
	searchOut []*retrieval.VectorSearchResult
	flushed   int
	searches  int
}

func (m *memoryVectorRepo) EnsureNovelSegmentsCollection(context.Context) error { return nil }

func (m *memoryVectorRepo) SearchSegments(context.Context, *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	m.searches++
	return m.searchOut, nil
}

func (m *memoryVectorRepo) InsertSegments(_ context.Context, _ string, segments []*retrieval.VectorSegment) error {
	m.segments = append(m.segments, segments...)
	return nil
}

func (m *memoryVectorRepo) Flush(context.Context) error {
	m.flushed++
	return nil
}

type pipelineFixture struct {
	gen   *queueGenerator
	store *ProjectStore
	repo  *memoryVectorRepo
	locks *ChapterLocks
}

func newFixture(t *testing.T, responses ...string) *pipelineFixture {
	t.Helper()
	return &pipelineFixture{
		gen:   &queueGenerator{responses: responses},
		store: newTestStore(t),
		repo:  &memoryVectorRepo{},
		locks: NewChapterLocks(),
	}
}

func (f *pipelineFixture) settingPipeline() *SettingPipeline {
	return NewSettingPipeline(
		generation.NewContinuation(f.gen, 3),
		prompt.NewRegistry(),
		f.store,
	)
}

func (f *pipelineFixture) chapterPipeline() *ChapterPipeline {
	index := retrieval.NewIndex(constEmbedder{}, f.repo, "demo")
	return NewChapterPipeline(
		generation.NewContinuation(f.gen, 3),
		prompt.NewRegistry(),
		f.store,
		index,
		2,
		f.locks,
	)
}
