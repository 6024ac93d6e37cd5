package models

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话消息
type Message struct {
	Role string `json:"role"` // 消息角色：user/assistant
	Text string `json:"text"` // 消息内容
}

// IsUser 是否为用户消息
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// UserMessage 创建用户消息
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage 创建助手消息
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// ChatService 对话服务接口，按会话管理聊天组件
type ChatService interface {
	// Submit 提交用户输入，空输入返回false
	Submit(sessionID string, text string) bool

	// SetDevMode 设置开发者模式
	SetDevMode(sessionID string, enabled bool)

	// Reset 重置对话
	Reset(sessionID string) []Message

	// Snapshot 获取对话历史和开发者模式
	Snapshot(sessionID string) ([]Message, bool)
}
