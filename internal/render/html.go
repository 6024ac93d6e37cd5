// Package render 将消息列表渲染为HTML或终端文本
package render

import (
	"bytes"
	"html/template"

	"localtrainer/internal/models"
)

// Renderer 每次状态变化时整体重绘消息列表
type Renderer interface {
	Render(messages []models.Message)
}

// RendererFunc 函数适配器
type RendererFunc func(messages []models.Message)

// Render 调用函数本身
func (f RendererFunc) Render(messages []models.Message) {
	f(messages)
}

// 显示名称
const (
	UserLabel      = "You"
	AssistantLabel = "LocalTrainer"
)

var threadTemplate = template.Must(template.New("thread").Parse(
	`{{range .}}<div class="mb-4">` +
		`{{if .IsUser}}<div class="mb-1 text-xs text-slate-400 text-right">You</div>` +
		`<div class="max-w-[85%] rounded-lg px-3 py-2 text-sm shadow ml-auto bg-base-700 border border-slate-700">` +
		`{{else}}<div class="mb-1 text-xs text-neon-green">LocalTrainer</div>` +
		`<div class="max-w-[85%] rounded-lg px-3 py-2 text-sm shadow mr-auto bg-base-900 border border-slate-800">` +
		`{{end}}<div class="text-slate-200 whitespace-pre-wrap">{{.Text}}</div></div></div>` +
		`{{end}}`))

// HTML 把消息列表渲染为聊天窗口的内部HTML
func HTML(messages []models.Message) (template.HTML, error) {
	var buf bytes.Buffer
	if err := threadTemplate.Execute(&buf, messages); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
