package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"z-novel-writer/pkg/metrics"
)

const (
	// DefaultSimilarityThreshold 是句子并入当前片段的余弦相似度下限
	DefaultSimilarityThreshold = 0.7
	// DefaultMaxSegmentRunes 是单个片段的最大字符数，超出后硬切
	DefaultMaxSegmentRunes = 500
)

// SemanticChunker 按句子边界切分文本，再以嵌入相似度贪心聚合成片段。
// 相邻且语义相近的句子归入同一片段；片段过长时按固定长度硬切。
type SemanticChunker struct {
	embedder  embedding.Embedder
	threshold float64
	maxRunes  int
}

func NewSemanticChunker(embedder embedding.Embedder, threshold float64, maxRunes int) *SemanticChunker {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultSimilarityThreshold
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxSegmentRunes
	}
	return &SemanticChunker{
		embedder:  embedder,
		threshold: threshold,
		maxRunes:  maxRunes,
	}
}

// Split 将 text 切分为语义片段。空白输入返回 nil 且不触发任何嵌入调用。
func (c *SemanticChunker) Split(ctx context.Context, text string) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	vectors, err := c.embedder.EmbedStrings(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(sentences) {
		return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(sentences), len(vectors))
	}

	var segments []string
	current := []string{sentences[0]}
	centroid := vectors[0]
	for idx := 1; idx < len(sentences); idx++ {
		if cosineSimilarity(centroid, vectors[idx]) >= c.threshold {
			current = append(current, sentences[idx])
			centroid = meanVector(centroid, vectors[idx])
			continue
		}
		segments = append(segments, strings.Join(current, " "))
		current = []string{sentences[idx]}
		centroid = vectors[idx]
	}
	segments = append(segments, strings.Join(current, " "))

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		out = append(out, hardSplit(seg, c.maxRunes)...)
	}

	metrics.ChunkerSegments.Observe(float64(len(out)))
	return out, nil
}

// SplitSentences 按中英文句末标点与换行切句，闭合引号归属前句。
// 剩余无终止符的尾部作为最后一句保留。
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for idx := 0; idx < len(runes); idx++ {
		r := runes[idx]
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		// 连续终止符（如 ？！、……）与闭合引号跟随前句
		for idx+1 < len(runes) && (isTerminator(runes[idx+1]) || isClosingQuote(runes[idx+1])) {
			idx++
			b.WriteRune(runes[idx])
		}
		flush()
	}
	flush()
	return sentences
}

func isTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '…', '.', '!', '?':
		return true
	}
	return false
}

func isClosingQuote(r rune) bool {
	switch r {
	case '”', '』', '」', '"', '\'', '）', ')':
		return true
	}
	return false
}

// meanVector 返回两向量的逐维均值，作为片段的运行中心
func meanVector(a, b []float64) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = (a[i] + b[i]) / 2
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// hardSplit 将超长片段按固定字符窗口切开
func hardSplit(s string, maxRunes int) []string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return []string{s}
	}
	var parts []string
	for start := 0; start < len(runes); start += maxRunes {
		end := start + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
