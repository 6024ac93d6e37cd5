// Package widget 实现聊天组件控制器：持有会话状态，处理提交、开发者模式切换和重置
package widget

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"localtrainer/internal/logger"
	"localtrainer/internal/models"
	"localtrainer/internal/render"
)

// 固定问候语
const (
	Greeting      = "Hi, I'm LocalTrainer. I run fully offline on your device. How can I help today?"
	ResetGreeting = "Chat reset. I'm LocalTrainer — offline and ready."
)

// DefaultReplyDelay 模拟的助手处理延迟
const DefaultReplyDelay = 300 * time.Millisecond

// Store 会话状态的持久化接口
type Store interface {
	LoadMessages() []models.Message
	SaveMessages(messages []models.Message)
	ClearMessages()
	LoadDevMode() bool
	SaveDevMode(enabled bool)
}

// Replier 回复引擎接口
type Replier interface {
	Reply(input string, devMode bool) string
}

// State 会话状态
type State struct {
	Messages []models.Message
	DevMode  bool
}

// Options 组件选项
type Options struct {
	ReplyDelay time.Duration // 小于0时使用默认值，0表示立即回复
	Name       string        // 日志中的会话名称
}

// Widget 聊天组件控制器。所有状态变更、持久化和渲染都在同一把锁内串行执行
type Widget struct {
	state    State
	store    Store
	renderer render.Renderer
	replier  Replier
	delay    time.Duration
	name     string

	mu       sync.Mutex
	pending  sync.WaitGroup
	inflight atomic.Int32
}

// Load 读取持久化状态，消息为空时补上问候语。问候语不写回存储
func Load(store Store) State {
	state := State{
		Messages: store.LoadMessages(),
		DevMode:  store.LoadDevMode(),
	}
	if len(state.Messages) == 0 {
		state.Messages = append(state.Messages, models.AssistantMessage(Greeting))
	}
	return state
}

// New 创建组件：加载持久化状态，存储为空时写入问候语
func New(store Store, renderer render.Renderer, replier Replier, opts Options) *Widget {
	delay := opts.ReplyDelay
	if delay < 0 {
		delay = DefaultReplyDelay
	}

	return &Widget{
		state:    Load(store),
		store:    store,
		renderer: renderer,
		replier:  replier,
		delay:    delay,
		name:     opts.Name,
	}
}

// Render 按当前消息列表重绘
func (w *Widget) Render() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renderLocked()
}

func (w *Widget) renderLocked() {
	if w.renderer == nil {
		return
	}
	w.renderer.Render(w.snapshotLocked())
}

func (w *Widget) snapshotLocked() []models.Message {
	messages := make([]models.Message, len(w.state.Messages))
	copy(messages, w.state.Messages)
	return messages
}

// appendLocked 追加消息、持久化并重绘
func (w *Widget) appendLocked(msg models.Message) {
	w.state.Messages = append(w.state.Messages, msg)
	w.store.SaveMessages(w.state.Messages)
	w.renderLocked()
}

// Submit 提交用户输入。空输入不做任何改动并返回nil；
// 否则立即追加用户消息，并在延迟后异步追加助手回复
func (w *Widget) Submit(text string) *Pending {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	w.mu.Lock()
	w.appendLocked(models.UserMessage(text))
	w.pending.Add(1)
	w.inflight.Add(1)
	w.mu.Unlock()

	p := newPending(text)
	time.AfterFunc(w.delay, func() {
		defer w.pending.Done()
		defer w.inflight.Add(-1)
		w.complete(p)
	})
	return p
}

// complete 延迟结束后生成回复；开发者模式取回复时的值
func (w *Widget) complete(p *Pending) {
	w.mu.Lock()
	reply := models.AssistantMessage(w.replier.Reply(p.input, w.state.DevMode))
	w.appendLocked(reply)
	w.mu.Unlock()

	logger.DebugCF("widget", "助手已回复", map[string]interface{}{
		"session": w.name,
		"input":   p.input,
	})
	p.resolve(reply)
}

// SetDevMode 立即持久化开发者模式，不重绘
func (w *Widget) SetDevMode(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.DevMode = enabled
	w.store.SaveDevMode(enabled)
}

// DevMode 当前开发者模式
func (w *Widget) DevMode() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.DevMode
}

// Reset 清空对话，只保留重置问候语
func (w *Widget) Reset() []models.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.store.ClearMessages()
	w.state.Messages = []models.Message{models.AssistantMessage(ResetGreeting)}
	w.store.SaveMessages(w.state.Messages)
	w.renderLocked()

	return w.snapshotLocked()
}

// Messages 当前消息列表的副本
func (w *Widget) Messages() []models.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Snapshot 返回消息列表和开发者模式
func (w *Widget) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{Messages: w.snapshotLocked(), DevMode: w.state.DevMode}
}

// Busy 是否有尚未完成的回复
func (w *Widget) Busy() bool {
	return w.inflight.Load() > 0
}

// Wait 等待所有进行中的回复完成
func (w *Widget) Wait() {
	w.pending.Wait()
}
