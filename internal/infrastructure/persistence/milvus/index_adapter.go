package milvus

import (
	"context"

	"z-novel-writer/internal/application/retrieval"
)

// IndexVectorRepository 把 Milvus 仓储适配为应用层的 VectorRepository 端口
type IndexVectorRepository struct {
	repo *Repository
}

func NewIndexVectorRepository(repo *Repository) *IndexVectorRepository {
	return &IndexVectorRepository{repo: repo}
}

var _ retrieval.VectorRepository = (*IndexVectorRepository)(nil)

func (r *IndexVectorRepository) EnsureNovelSegmentsCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.EnsureNovelSegmentsCollection(ctx)
}

func (r *IndexVectorRepository) SearchSegments(ctx context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, retrieval.ErrVectorDisabled
	}
	if params == nil {
		return nil, nil
	}

	out, err := r.repo.SearchSegments(ctx, &SearchParams{
		Project:     params.Project,
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*retrieval.VectorSearchResult, 0, len(out))
	for i := range out {
		v := out[i]
		if v == nil {
			continue
		}
		results = append(results, &retrieval.VectorSearchResult{
			ID:          v.ID,
			Score:       v.Score,
			TextContent: v.TextContent,
		})
	}
	return results, nil
}

func (r *IndexVectorRepository) InsertSegments(ctx context.Context, project string, segments []*retrieval.VectorSegment) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	if len(segments) == 0 {
		return nil
	}

	out := make([]*NovelSegment, 0, len(segments))
	for i := range segments {
		s := segments[i]
		if s == nil {
			continue
		}
		out = append(out, &NovelSegment{
			ID:          s.ID,
			Project:     s.Project,
			TextContent: s.TextContent,
			Vector:      s.Vector,
		})
	}
	return r.repo.InsertSegments(ctx, project, out)
}

func (r *IndexVectorRepository) Flush(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.Flush(ctx)
}
