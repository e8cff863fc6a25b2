package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"z-novel-writer/internal/application/generation"
	apperrors "z-novel-writer/pkg/errors"
)

// EinoGenerator 把 Eino ChatModel 适配为应用层的 Generator 端口
type EinoGenerator struct {
	factory  *EinoFactory
	provider string
}

// NewEinoGenerator 创建绑定到 provider 的生成器；provider 为空时使用默认客户端
func NewEinoGenerator(factory *EinoFactory, provider string) *EinoGenerator {
	return &EinoGenerator{factory: factory, provider: provider}
}

func (g *EinoGenerator) Invoke(ctx context.Context, msgs []generation.Message) (string, error) {
	chatModel, err := g.factory.Get(ctx, g.provider)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}
	out, err := chatModel.Generate(ctx, toSchemaMessages(msgs))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model generate failed")
	}
	return out.Content, nil
}

func (g *EinoGenerator) Stream(ctx context.Context, msgs []generation.Message) (generation.TextStream, error) {
	chatModel, err := g.factory.Get(ctx, g.provider)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}
	reader, err := chatModel.Stream(ctx, toSchemaMessages(msgs))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model stream failed")
	}
	return &einoTextStream{reader: reader}, nil
}

// einoTextStream 把 Eino 的消息流降维为纯文本增量流
type einoTextStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoTextStream) Recv() (string, error) {
	msg, err := s.reader.Recv()
	if err != nil {
		// io.EOF 原样透传，标记流结束
		return "", err
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func (s *einoTextStream) Close() {
	s.reader.Close()
}

func toSchemaMessages(msgs []generation.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case generation.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case generation.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

var _ generation.Generator = (*EinoGenerator)(nil)
