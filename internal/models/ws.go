package models

// 推送消息类型
const (
	PushTypeRender = "render"
)

// PushMessage 服务端通过WebSocket推送给页面的消息
type PushMessage struct {
	Type string `json:"type"`           // 消息类型
	HTML string `json:"html,omitempty"` // 重新渲染的消息列表
}
