package retrieval

import "context"

// VectorRepository 定义应用层对“向量存储/检索”的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
type VectorRepository interface {
	// EnsureNovelSegmentsCollection 确保集合与索引可用，不存在则创建
	EnsureNovelSegmentsCollection(ctx context.Context) error
	// SearchSegments 按向量相似度检索；集合或项目分区不存在时返回空结果而非错误
	SearchSegments(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
	// InsertSegments 插入片段到指定项目分区
	InsertSegments(ctx context.Context, project string, segments []*VectorSegment) error
	// Flush 将未落盘的写入持久化
	Flush(ctx context.Context) error
}

type VectorSearchParams struct {
	Project     string
	QueryVector []float32
	TopK        int
}

type VectorSearchResult struct {
	ID          string
	Score       float32
	TextContent string
}

type VectorSegment struct {
	ID          string
	Project     string
	TextContent string
	Vector      []float32
}
