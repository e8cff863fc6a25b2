// Package generation 提供基于终止符的流式续写协议
package generation

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	apperrors "z-novel-writer/pkg/errors"
	"z-novel-writer/pkg/logger"
	"z-novel-writer/pkg/metrics"
)

// Sentinel 模型用于标记回答完整结束的终止符
const Sentinel = "###"

const defaultMaxContinuations = 6

const sentinelDirective = "\n\n当你的回答完整结束时，请在最后单独输出 " + Sentinel +
	" 作为终止符，终止符之后不要输出任何内容。"

const continueDirective = "你的上一条回答尚未以终止符 " + Sentinel +
	" 结束，说明输出被截断了。请从最后一句话接着续写；若最后一句不完整，先补全该句。" +
	"完整结束时同样以 " + Sentinel + " 收尾。"

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Continuation 包装 Generator，把可能被截断的流式输出拼接为一条完整回复。
// 协议：提示模型以终止符收尾；流结束后若缓冲区未见终止符，则携带全部历史
// 发起续写请求，直到出现终止符或达到轮数上限。
type Continuation struct {
	gen              Generator
	maxContinuations int
}

// NewContinuation 创建续写生成器；maxContinuations <= 0 时使用默认上限
func NewContinuation(gen Generator, maxContinuations int) *Continuation {
	if maxContinuations <= 0 {
		maxContinuations = defaultMaxContinuations
	}
	return &Continuation{gen: gen, maxContinuations: maxContinuations}
}

// Complete 执行完整的续写协议并返回清理后的文本。
// 模型/传输错误原样向上传播；续写轮数耗尽返回 CodeContinuationLimit。
func (c *Continuation) Complete(ctx context.Context, msgs []Message) (string, error) {
	if c == nil || c.gen == nil {
		return "", apperrors.New(apperrors.CodeInternalError, "generator not configured")
	}
	if len(msgs) == 0 {
		return "", apperrors.New(apperrors.CodeInvalidParam, "invalid parameter").
			WithDetail("empty prompt messages")
	}

	// 在最后一条用户消息上追加终止符指令；历史是累积的，后续续写轮携带全部上下文
	history := make([]Message, len(msgs))
	copy(history, msgs)
	last := &history[len(history)-1]
	if last.Role == RoleUser {
		last.Content += sentinelDirective
	} else {
		history = append(history, UserMessage(strings.TrimSpace(sentinelDirective)))
	}

	var buf strings.Builder
	rounds := 0
	for {
		rounds++
		chunk, err := c.streamOnce(ctx, history)
		if err != nil {
			return "", err
		}
		buf.WriteString(chunk)

		if endsWithSentinel(buf.String()) {
			break
		}
		if rounds > c.maxContinuations {
			logger.Warn(ctx, "continuation limit reached without sentinel",
				"rounds", rounds,
				"buffer_len", buf.Len(),
			)
			return "", apperrors.New(apperrors.CodeContinuationLimit,
				"model never emitted the completion sentinel, forced stop")
		}

		logger.Debug(ctx, "response truncated, issuing continuation request", "round", rounds)
		history = append(history, AssistantMessage(chunk), UserMessage(continueDirective))
	}

	metrics.ContinuationRounds.Observe(float64(rounds))
	return CleanResponse(buf.String()), nil
}

// InvokeCleaned 单次非流式调用，仅做 <think> 清理，不走续写协议。
// 用于短输出场景（如近期章节摘要），截断风险可忽略。
func (c *Continuation) InvokeCleaned(ctx context.Context, msgs []Message) (string, error) {
	if c == nil || c.gen == nil {
		return "", apperrors.New(apperrors.CodeInternalError, "generator not configured")
	}
	start := time.Now()
	out, err := c.gen.Invoke(ctx, msgs)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("invoke", "error").Inc()
		return "", err
	}
	metrics.LLMCallTotal.WithLabelValues("invoke", "ok").Inc()
	metrics.LLMCallDuration.WithLabelValues("invoke").Observe(time.Since(start).Seconds())
	return CleanResponse(out), nil
}

// streamOnce 执行一轮流式交换，返回本轮的全部非空增量拼接
func (c *Continuation) streamOnce(ctx context.Context, msgs []Message) (string, error) {
	start := time.Now()
	stream, err := c.gen.Stream(ctx, msgs)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("stream", "error").Inc()
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		inc, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			metrics.LLMCallTotal.WithLabelValues("stream", "error").Inc()
			return "", recvErr
		}
		if inc == "" {
			// 空增量视为“思考中”，只做本地进度提示，不进入缓冲区
			logger.Debug(ctx, "model thinking")
			continue
		}
		b.WriteString(inc)
	}

	metrics.LLMCallTotal.WithLabelValues("stream", "ok").Inc()
	metrics.LLMCallDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
	return b.String(), nil
}

func endsWithSentinel(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), Sentinel)
}

// CleanResponse 去除终止符与 <think>...</think> 推理片段
func CleanResponse(s string) string {
	s = thinkTagRe.ReplaceAllString(s, "")
	t := strings.TrimSpace(s)
	for strings.HasSuffix(t, Sentinel) {
		t = strings.TrimSpace(strings.TrimSuffix(t, Sentinel))
	}
	return t
}
