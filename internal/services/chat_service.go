package services

import (
	"context"
	"sync"
	"time"

	"localtrainer/internal/config"
	"localtrainer/internal/logger"
	"localtrainer/internal/models"
	"localtrainer/internal/render"
	"localtrainer/internal/reply"
	"localtrainer/internal/storage"
	"localtrainer/internal/widget"
)

var _ models.ChatService = (*ChatService)(nil)

// Pusher 把渲染结果推送给会话
type Pusher interface {
	Push(session string, msg models.PushMessage)
}

// sessionScope 会话在存储中的作用域
func sessionScope(sessionID string) string {
	return "session:" + sessionID
}

// chatSession 内存中保留的会话组件
type chatSession struct {
	widget     *widget.Widget
	lastActive time.Time
}

// ChatService 按会话管理聊天组件。只有修改状态的操作会在内存中保留组件，
// 空闲超过ttl且没有进行中回复的组件由Sweep回收
type ChatService struct {
	kv      storage.KV
	timeout time.Duration
	delay   time.Duration
	ttl     time.Duration
	replier widget.Replier
	pusher  Pusher
	now     func() time.Time

	sessions map[string]*chatSession
	mu       sync.Mutex
}

// NewChatService 创建对话服务
func NewChatService(cfg *config.Config, kv storage.KV, pusher Pusher) *ChatService {
	return &ChatService{
		kv:       kv,
		timeout:  cfg.Storage.Timeout,
		delay:    cfg.Chat.ReplyDelay,
		ttl:      cfg.Chat.SessionTTL,
		replier:  reply.NewEngine(cfg.Chat.Seed),
		pusher:   pusher,
		now:      time.Now,
		sessions: make(map[string]*chatSession),
	}
}

func (s *ChatService) storeFor(sessionID string) *storage.StateStore {
	return storage.NewStateStore(storage.Scoped(s.kv, sessionScope(sessionID)), s.timeout)
}

// lookup 返回已保留的会话组件并刷新活跃时间，不存在时返回nil
func (s *ChatService) lookup(sessionID string) *widget.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.lastActive = s.now()
	return sess.widget
}

// getOrCreateSession 获取或创建会话组件。从存储加载在锁外进行，避免慢存储阻塞其他会话
func (s *ChatService) getOrCreateSession(sessionID string) *widget.Widget {
	if w := s.lookup(sessionID); w != nil {
		return w
	}

	w := widget.New(s.storeFor(sessionID), s.rendererFor(sessionID), s.replier, widget.Options{
		ReplyDelay: s.delay,
		Name:       sessionID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	// 加载期间可能已有其他请求创建了同一会话
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastActive = s.now()
		return sess.widget
	}
	s.sessions[sessionID] = &chatSession{widget: w, lastActive: s.now()}

	logger.DebugCF("chat", "创建会话", map[string]interface{}{"session": sessionID})
	return w
}

// SessionCount 内存中保留的会话数
func (s *ChatService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep 回收在now之前空闲超过ttl且没有进行中回复的会话，返回回收数量
func (s *ChatService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) < s.ttl || sess.widget.Busy() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

// RunSweeper 定期回收空闲会话，直到ctx结束
func (s *ChatService) RunSweeper(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				logger.DebugCF("chat", "回收空闲会话", map[string]interface{}{
					"evicted":   n,
					"remaining": s.SessionCount(),
				})
			}
		}
	}
}

// rendererFor 渲染为HTML并推送到会话的所有页面
func (s *ChatService) rendererFor(sessionID string) render.Renderer {
	return render.RendererFunc(func(messages []models.Message) {
		if s.pusher == nil {
			return
		}
		html, err := render.HTML(messages)
		if err != nil {
			logger.ErrorCF("chat", "渲染消息失败", map[string]interface{}{"error": err.Error()})
			return
		}
		s.pusher.Push(sessionID, models.PushMessage{Type: models.PushTypeRender, HTML: string(html)})
	})
}

// Submit 提交用户输入，空输入返回false
func (s *ChatService) Submit(sessionID string, text string) bool {
	return s.getOrCreateSession(sessionID).Submit(text) != nil
}

// SubmitAsync 提交用户输入并返回延迟回复任务，空输入返回nil
func (s *ChatService) SubmitAsync(sessionID string, text string) *widget.Pending {
	return s.getOrCreateSession(sessionID).Submit(text)
}

// SetDevMode 设置开发者模式
func (s *ChatService) SetDevMode(sessionID string, enabled bool) {
	s.getOrCreateSession(sessionID).SetDevMode(enabled)
}

// Reset 重置对话
func (s *ChatService) Reset(sessionID string) []models.Message {
	return s.getOrCreateSession(sessionID).Reset()
}

// Snapshot 获取对话历史和开发者模式。未保留的会话直接从存储读取，不创建组件
func (s *ChatService) Snapshot(sessionID string) ([]models.Message, bool) {
	var state widget.State
	if w := s.lookup(sessionID); w != nil {
		state = w.Snapshot()
	} else {
		state = widget.Load(s.storeFor(sessionID))
	}
	return state.Messages, state.DevMode
}

// Render 重新推送会话的消息列表，同样不为只读访问创建组件
func (s *ChatService) Render(sessionID string) {
	if w := s.lookup(sessionID); w != nil {
		w.Render()
		return
	}
	s.rendererFor(sessionID).Render(widget.Load(s.storeFor(sessionID)).Messages)
}

// Wait 等待所有会话中进行中的回复完成
func (s *ChatService) Wait() {
	s.mu.Lock()
	widgets := make([]*widget.Widget, 0, len(s.sessions))
	for _, sess := range s.sessions {
		widgets = append(widgets, sess.widget)
	}
	s.mu.Unlock()

	for _, w := range widgets {
		w.Wait()
	}
}
