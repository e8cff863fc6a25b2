package generation

import "context"

// 消息角色，与 OpenAI 风格的对话角色对齐。
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 一轮对话消息
type Message struct {
	Role    string
	Content string
}

// TextStream 增量文本流；Recv 在流结束时返回 io.EOF。
// 调用方负责 Close()。
type TextStream interface {
	Recv() (string, error)
	Close()
}

// Generator 定义应用层对语言模型的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Eino ChatModel）。
type Generator interface {
	Invoke(ctx context.Context, msgs []Message) (string, error)
	Stream(ctx context.Context, msgs []Message) (TextStream, error)
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
