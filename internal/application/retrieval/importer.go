package retrieval

import (
	"context"
	"os"
	"strings"

	"z-novel-writer/pkg/logger"
)

// Importer 将外部知识文件切分后写入项目的向量索引
type Importer struct {
	chunker *SemanticChunker
	index   *Index
}

func NewImporter(chunker *SemanticChunker, index *Index) *Importer {
	return &Importer{
		chunker: chunker,
		index:   index,
	}
}

// ImportFile 读取 path 指向的文本文件，语义分块后逐段入库。
// 文件缺失或内容为空时记录告警并静默返回，不视为错误。
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn(ctx, "knowledge file not found, skip import", "path", path)
			return 0, nil
		}
		return 0, err
	}
	return im.ImportText(ctx, string(data))
}

// ImportText 对原始文本做分块入库，返回写入的片段数
func (im *Importer) ImportText(ctx context.Context, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		logger.Warn(ctx, "knowledge content empty, skip import")
		return 0, nil
	}

	segments, err := im.chunker.Split(ctx, text)
	if err != nil {
		return 0, err
	}
	if len(segments) == 0 {
		return 0, nil
	}

	if err := im.index.Insert(ctx, segments); err != nil {
		return 0, err
	}
	return len(segments), nil
}
