package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-writer/pkg/metrics"
)

// Repository 向量片段仓储
type Repository struct {
	client *Client
}

// NewRepository 创建向量片段仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 检索参数
type SearchParams struct {
	Project     string
	QueryVector []float32
	TopK        int
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	TextContent string
}

// EnsureNovelSegmentsCollection 确保 novel_segments 集合与索引可用（不存在则创建）
func (r *Repository) EnsureNovelSegmentsCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionNovelSegments)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.createCollection(ctx, NovelSegmentsSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入
		_ = r.createIndex(ctx, CollectionNovelSegments)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, CollectionNovelSegments)
}

func (r *Repository) createCollection(ctx context.Context, schema *entity.Schema) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	schema.CollectionName = r.client.CollectionName(schema.CollectionName)
	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *Repository) createIndex(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := r.client.milvus.CreateIndex(ctx, r.client.CollectionName(collection), "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

func (r *Repository) createPartition(ctx context.Context, project string) error {
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(attribute.String("partition", PartitionName(project))))
	defer span.End()

	collName := r.client.CollectionName(CollectionNovelSegments)
	return r.client.milvus.CreatePartition(ctx, collName, PartitionName(project))
}

// SearchSegments 在项目分区内做向量相似度检索。
// 分区尚未创建（新项目）时直接返回空结果，避免 Milvus 报 partition not found。
func (r *Repository) SearchSegments(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchSegments",
		trace.WithAttributes(
			attribute.String("project", params.Project),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	start := time.Now()
	collName := r.client.CollectionName(CollectionNovelSegments)
	partitionName := PartitionName(params.Project)

	if has, err := r.client.milvus.HasCollection(ctx, collName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check collection: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}

	filter := fmt.Sprintf(`project == "%s"`, params.Project)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id", "text_content"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}
			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			if textCol, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
				sr.TextContent = textCol.Data()[i]
			}
			searchResults = append(searchResults, sr)
		}
	}

	metrics.MilvusSearchDuration.WithLabelValues(CollectionNovelSegments).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// InsertSegments 插入小说片段，分区不存在时先创建
func (r *Repository) InsertSegments(ctx context.Context, project string, segments []*NovelSegment) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertSegments",
		trace.WithAttributes(
			attribute.String("project", project),
			attribute.Int("count", len(segments)),
		))
	defer span.End()

	if len(segments) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionNovelSegments)
	partitionName := PartitionName(project)

	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.createPartition(ctx, project); err != nil {
			metrics.MilvusInsertTotal.WithLabelValues(CollectionNovelSegments, "error").Inc()
			return err
		}
	}

	ids := make([]string, len(segments))
	vectors := make([][]float32, len(segments))
	projects := make([]string, len(segments))
	textContents := make([]string, len(segments))
	for i, seg := range segments {
		ids[i] = seg.ID
		vectors[i] = seg.Vector
		projects[i] = seg.Project
		textContents[i] = seg.TextContent
	}

	idCol := entity.NewColumnVarChar("id", ids)
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, vectors)
	projectCol := entity.NewColumnVarChar("project", projects)
	textCol := entity.NewColumnVarChar("text_content", textContents)

	if _, err := r.client.milvus.Insert(ctx, collName, partitionName,
		idCol, vectorCol, projectCol, textCol); err != nil {
		span.RecordError(err)
		metrics.MilvusInsertTotal.WithLabelValues(CollectionNovelSegments, "error").Inc()
		return fmt.Errorf("failed to insert segments: %w", err)
	}

	metrics.MilvusInsertTotal.WithLabelValues(CollectionNovelSegments, "ok").Inc()
	return nil
}

// Flush 将内存中的写入落盘，保证后续检索可见
func (r *Repository) Flush(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Flush")
	defer span.End()

	collName := r.client.CollectionName(CollectionNovelSegments)
	if err := r.client.milvus.Flush(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}
