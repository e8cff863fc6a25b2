package milvus

import (
	"regexp"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionNovelSegments 小说片段集合
	CollectionNovelSegments = "novel_segments"

	// VectorDimension 向量维度
	VectorDimension = 1024
)

// NovelSegment 小说片段存储模型
type NovelSegment struct {
	ID          string
	Project     string
	TextContent string
	Vector      []float32
}

// NovelSegmentsSchema 小说片段 Collection Schema
func NovelSegmentsSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionNovelSegments,
		Description:    "Novel content segments for semantic retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1024",
				},
			},
			{
				Name:     "project",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

var partitionSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// PartitionName 生成项目分区名称；非法字符替换为下划线
func PartitionName(project string) string {
	return "proj_" + partitionSanitizeRe.ReplaceAllString(project, "_")
}
