package generation

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "z-novel-writer/pkg/errors"
)

// fakeStream 把预置增量按顺序吐出，结束后返回 io.EOF
type fakeStream struct {
	chunks []string
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fakeStream) Close() {
	s.closed = true
}

// scriptedGenerator 每轮 Stream 调用依次消费一份脚本
type scriptedGenerator struct {
	rounds    [][]string
	streams   []*fakeStream
	histories [][]Message
}

func (g *scriptedGenerator) Invoke(_ context.Context, msgs []Message) (string, error) {
	g.histories = append(g.histories, msgs)
	if len(g.rounds) == 0 {
		return "", nil
	}
	return strings.Join(g.rounds[0], ""), nil
}

func (g *scriptedGenerator) Stream(_ context.Context, msgs []Message) (TextStream, error) {
	g.histories = append(g.histories, append([]Message(nil), msgs...))
	idx := len(g.streams)
	var chunks []string
	if idx < len(g.rounds) {
		chunks = g.rounds[idx]
	}
	stream := &fakeStream{chunks: chunks}
	g.streams = append(g.streams, stream)
	return stream, nil
}

func TestCompleteSingleRound(t *testing.T) {
	gen := &scriptedGenerator{rounds: [][]string{
		{"夜色", "深了。", "\n" + Sentinel},
	}}
	c := NewContinuation(gen, 3)

	out, err := c.Complete(context.Background(), []Message{UserMessage("写一段")})
	require.NoError(t, err)
	assert.Equal(t, "夜色深了。", out)
	require.Len(t, gen.streams, 1)
	assert.True(t, gen.streams[0].closed)
}

func TestCompleteStitchesContinuations(t *testing.T) {
	gen := &scriptedGenerator{rounds: [][]string{
		{"第一段，但被截断"},
		{"，这是补写的后半段。", Sentinel},
	}}
	c := NewContinuation(gen, 3)

	out, err := c.Complete(context.Background(), []Message{UserMessage("写一段")})
	require.NoError(t, err)
	assert.Equal(t, "第一段，但被截断，这是补写的后半段。", out)
	require.Len(t, gen.streams, 2)

	// 第二轮请求携带累积历史：原始提示、上轮助手输出、续写指令
	second := gen.histories[1]
	require.Len(t, second, 3)
	assert.Equal(t, RoleAssistant, second[1].Role)
	assert.Equal(t, "第一段，但被截断", second[1].Content)
	assert.Equal(t, RoleUser, second[2].Role)
	assert.Contains(t, second[2].Content, Sentinel)
}

func TestCompleteAppendsSentinelDirective(t *testing.T) {
	gen := &scriptedGenerator{rounds: [][]string{{"好。", Sentinel}}}
	c := NewContinuation(gen, 3)

	_, err := c.Complete(context.Background(), []Message{
		SystemMessage("你是作者"),
		UserMessage("写一段"),
	})
	require.NoError(t, err)

	first := gen.histories[0]
	require.Len(t, first, 2)
	assert.Contains(t, first[1].Content, "写一段")
	assert.Contains(t, first[1].Content, Sentinel)
}

func TestCompleteSkipsEmptyIncrements(t *testing.T) {
	gen := &scriptedGenerator{rounds: [][]string{
		{"", "", "实际内容。", "", Sentinel},
	}}
	c := NewContinuation(gen, 3)

	out, err := c.Complete(context.Background(), []Message{UserMessage("写")})
	require.NoError(t, err)
	assert.Equal(t, "实际内容。", out)
}

func TestCompleteForcedStopAfterLimit(t *testing.T) {
	// 模型永不输出终止符
	gen := &scriptedGenerator{rounds: [][]string{
		{"a"}, {"b"}, {"c"}, {"d"}, {"e"},
	}}
	c := NewContinuation(gen, 2)

	_, err := c.Complete(context.Background(), []Message{UserMessage("写")})
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeContinuationLimit, appErr.Code)
	// 初始轮 + 上限内的续写轮，之后强制终止
	assert.Len(t, gen.streams, 3)
}

func TestCompleteEmptyMessagesKeepsSharedErrorClean(t *testing.T) {
	c := NewContinuation(&scriptedGenerator{}, 3)

	_, err := c.Complete(context.Background(), nil)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
	assert.Equal(t, "empty prompt messages", appErr.Detail)

	// detail 只写进本次错误实例，预定义错误保持干净
	assert.Empty(t, apperrors.ErrInvalidParam.Detail)
}

func TestCleanResponseStripsThinkTags(t *testing.T) {
	raw := "<think>先琢磨一下\n情节走向</think>正文内容。\n" + Sentinel
	assert.Equal(t, "正文内容。", CleanResponse(raw))
}

func TestCleanResponseStripsRepeatedSentinels(t *testing.T) {
	assert.Equal(t, "结尾。", CleanResponse("结尾。\n"+Sentinel+"\n"+Sentinel))
}

func TestInvokeCleaned(t *testing.T) {
	gen := &scriptedGenerator{rounds: [][]string{{"<think>x</think>摘要。"}}}
	c := NewContinuation(gen, 3)

	out, err := c.InvokeCleaned(context.Background(), []Message{UserMessage("概括")})
	require.NoError(t, err)
	assert.Equal(t, "摘要。", out)
}
