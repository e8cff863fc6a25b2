// Package retrieval 提供语义分块与向量索引的读写入口
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"z-novel-writer/pkg/logger"
)

// Index 是单个项目的向量索引句柄：插入文本、按语义相似度检索。
// 集合在首次插入时惰性创建；每次写入在返回前持久化。
type Index struct {
	embedder embedding.Embedder
	vector   VectorRepository
	project  string
}

// NewIndex 创建绑定到 project 的索引句柄
func NewIndex(embedder embedding.Embedder, vectorRepo VectorRepository, project string) *Index {
	return &Index{
		embedder: embedder,
		vector:   vectorRepo,
		project:  project,
	}
}

func (i *Index) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

// Insert 将每条文本作为一个独立片段写入索引。
// 重复内容允许重复插入；嵌入错误原样向上传播。
func (i *Index) Insert(ctx context.Context, texts []string) error {
	if !i.Enabled() {
		return ErrVectorDisabled
	}

	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	// 索引不存在时在首次插入时创建
	if err := i.vector.EnsureNovelSegmentsCollection(ctx); err != nil {
		return err
	}

	vectors, err := i.embedBatch(ctx, kept)
	if err != nil {
		return err
	}

	segments := make([]*VectorSegment, 0, len(kept))
	for idx, t := range kept {
		segments = append(segments, &VectorSegment{
			ID:          uuid.NewString(),
			Project:     i.project,
			TextContent: t,
			Vector:      vectors[idx],
		})
	}
	if err := i.vector.InsertSegments(ctx, i.project, segments); err != nil {
		return err
	}

	// 写入后立即落盘，保证返回时已持久化
	if err := i.vector.Flush(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "vector index updated", "project", i.project, "segments", len(segments))
	return nil
}

// Query 返回与 query 最相似的至多 k 条文本，按相似度降序。
// 索引尚不存在时返回空结果，不报错。
func (i *Index) Query(ctx context.Context, query string, k int) ([]string, error) {
	if !i.Enabled() {
		return nil, ErrVectorDisabled
	}
	q := strings.TrimSpace(query)
	if q == "" || k <= 0 {
		return nil, nil
	}

	vectors, err := i.embedBatch(ctx, []string{q})
	if err != nil {
		return nil, err
	}

	results, err := i.vector.SearchSegments(ctx, &VectorSearchParams{
		Project:     i.project,
		QueryVector: vectors[0],
		TopK:        k,
	})
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		texts = append(texts, r.TextContent)
	}
	return texts, nil
}

func (i *Index) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	v64, err := i.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(v64) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(texts), len(v64))
	}
	out := make([][]float32, len(v64))
	for idx, vec := range v64 {
		v32 := make([]float32, len(vec))
		for j, x := range vec {
			v32[j] = float32(x)
		}
		out[idx] = v32
	}
	return out, nil
}
