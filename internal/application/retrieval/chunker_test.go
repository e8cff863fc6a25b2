package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 按句子前缀返回固定向量，便于构造可控的相似度
type fakeEmbedder struct {
	vectors map[string][]float64
	deflt   []float64
	calls   int
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = f.deflt
		}
	}
	return out, nil
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("月色很冷。他说：“走吧！”她没有回答……\n最后一行没有标点")
	require.Len(t, sentences, 4)
	assert.Equal(t, "月色很冷。", sentences[0])
	assert.Equal(t, "他说：“走吧！”", sentences[1])
	assert.Equal(t, "她没有回答……", sentences[2])
	assert.Equal(t, "最后一行没有标点", sentences[3])
}

func TestSplitSentencesEmpty(t *testing.T) {
	assert.Nil(t, SplitSentences(""))
	assert.Nil(t, SplitSentences("   \n\n  "))
}

func TestChunkerMergesSimilarSentences(t *testing.T) {
	emb := &fakeEmbedder{
		vectors: map[string][]float64{
			"山风吹过。":  {1, 0, 0},
			"松涛阵阵。":  {1, 0.1, 0},
			"账本另起一页。": {0, 0, 1},
		},
	}
	c := NewSemanticChunker(emb, 0.7, 500)

	segments, err := c.Split(context.Background(), "山风吹过。松涛阵阵。账本另起一页。")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "山风吹过。 松涛阵阵。", segments[0])
	assert.Equal(t, "账本另起一页。", segments[1])
	// 全部句子在一次批量调用中完成嵌入
	assert.Equal(t, 1, emb.calls)
}

func TestChunkerEmptyInputSkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{deflt: []float64{1, 0}}
	c := NewSemanticChunker(emb, 0.7, 500)

	segments, err := c.Split(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, segments)
	assert.Zero(t, emb.calls)
}

func TestChunkerHardSplitsOversizedSegment(t *testing.T) {
	long := strings.Repeat("长", 120) + "。"
	emb := &fakeEmbedder{deflt: []float64{1, 0}}
	c := NewSemanticChunker(emb, 0.7, 50)

	segments, err := c.Split(context.Background(), long)
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)
	for _, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg)), 50)
	}
	assert.Equal(t, strings.Repeat("长", 120)+"。", strings.Join(segments, ""))
}

func TestChunkerCentroidIsMeanOfTwo(t *testing.T) {
	// 丙与乙本身足够相似，但与“甲乙均值中心”不够相似：
	// 若实现错误地用上一句而非运行中心比较，丙会被并入
	emb := &fakeEmbedder{
		vectors: map[string][]float64{
			"甲。": {1, 0},
			"乙。": {0.6, 0.8},
			"丙。": {0, 1},
		},
	}
	c := NewSemanticChunker(emb, 0.5, 500)

	segments, err := c.Split(context.Background(), "甲。乙。丙。")
	require.NoError(t, err)
	// cos(甲,乙)=0.6 ≥ 0.5 合并，中心=(0.8,0.4)；cos(中心,丙)≈0.447 < 0.5 另起
	assert.Equal(t, []string{"甲。 乙。", "丙。"}, segments)
}

func TestChunkerDeterministicAndReconstructs(t *testing.T) {
	text := "山风吹过。松涛阵阵。账本另起一页。月色很冷！最后一行没有标点"
	emb := &fakeEmbedder{
		vectors: map[string][]float64{
			"山风吹过。":    {1, 0, 0},
			"松涛阵阵。":    {1, 0.1, 0},
			"账本另起一页。":  {0, 0, 1},
			"月色很冷！":    {0, 0.1, 1},
			"最后一行没有标点": {0, 1, 0},
		},
	}
	c := NewSemanticChunker(emb, 0.7, 500)

	first, err := c.Split(context.Background(), text)
	require.NoError(t, err)
	require.Greater(t, len(first), 1)

	// 相同输入与阈值下切分结果逐段一致
	second, err := c.Split(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// 语义切分只重组句子，不增删内容：去掉拼接空白后可还原全文
	joined := strings.NewReplacer(" ", "", "\n", "").Replace(strings.Join(first, ""))
	assert.Equal(t, text, joined)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func TestMeanVector(t *testing.T) {
	assert.Equal(t, []float64{0.5, 0.5}, meanVector([]float64{1, 0}, []float64{0, 1}))
}
