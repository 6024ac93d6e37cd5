package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localtrainer/internal/config"
	"localtrainer/internal/models"
	"localtrainer/internal/storage"
	"localtrainer/internal/widget"
)

// recordingPusher 按会话记录推送
type recordingPusher struct {
	mu     sync.Mutex
	pushes map[string][]models.PushMessage
}

func (p *recordingPusher) Push(session string, msg models.PushMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushes == nil {
		p.pushes = make(map[string][]models.PushMessage)
	}
	p.pushes[session] = append(p.pushes[session], msg)
}

func (p *recordingPusher) get(session string) []models.PushMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[session]
}

func newService(t *testing.T) (*ChatService, *storage.Memory, *recordingPusher) {
	t.Helper()
	cfg := config.Default()
	cfg.Chat.ReplyDelay = 10 * time.Millisecond
	cfg.Chat.Seed = 1

	kv := storage.NewMemory()
	pusher := &recordingPusher{}
	return NewChatService(cfg, kv, pusher), kv, pusher
}

func TestChatServiceSubmit(t *testing.T) {
	svc, _, pusher := newService(t)

	assert.False(t, svc.Submit("s1", "   "))
	assert.True(t, svc.Submit("s1", "hello"))
	svc.Wait()

	msgs, devMode := svc.Snapshot("s1")
	require.Len(t, msgs, 3)
	assert.Equal(t, widget.Greeting, msgs[0].Text)
	assert.Equal(t, "Hello! I'm running locally with no network access.", msgs[2].Text)
	assert.False(t, devMode)

	pushes := pusher.get("s1")
	require.Len(t, pushes, 2)
	for _, p := range pushes {
		assert.Equal(t, models.PushTypeRender, p.Type)
	}
	assert.Contains(t, pushes[1].HTML, "running locally with no network access")
}

func TestChatServiceSessionsIsolated(t *testing.T) {
	svc, kv, _ := newService(t)

	svc.SetDevMode("a", true)
	p := svc.SubmitAsync("a", "TRAIN:ADD")
	require.NotNil(t, p)
	<-p.Done()

	msgsA, devA := svc.Snapshot("a")
	msgsB, devB := svc.Snapshot("b")
	assert.True(t, devA)
	assert.False(t, devB)
	assert.Len(t, msgsA, 3)
	assert.Len(t, msgsB, 1)
	assert.True(t, strings.HasPrefix(msgsA[2].Text, "Staged samples"))

	// 数据写入会话作用域
	stored := storage.NewStateStore(storage.Scoped(kv, sessionScope("a")), 0).LoadMessages()
	assert.Equal(t, msgsA, stored)
}

func TestChatServiceReloadsFromStorage(t *testing.T) {
	svc, kv, _ := newService(t)
	svc.Submit("a", "dataset?")
	svc.SetDevMode("a", true)
	svc.Wait()
	want, _ := svc.Snapshot("a")

	// 新的服务实例从同一存储加载
	fresh := NewChatService(config.Default(), kv, nil)
	got, devMode := fresh.Snapshot("a")
	assert.Equal(t, want, got)
	assert.True(t, devMode)
}

func TestChatServiceReset(t *testing.T) {
	svc, _, pusher := newService(t)
	svc.Submit("a", "x")
	svc.Wait()

	msgs := svc.Reset("a")
	assert.Equal(t, []models.Message{models.AssistantMessage(widget.ResetGreeting)}, msgs)

	pushes := pusher.get("a")
	assert.Contains(t, pushes[len(pushes)-1].HTML, "Chat reset.")
}

func TestChatServiceRender(t *testing.T) {
	svc, _, pusher := newService(t)
	svc.Render("a")

	pushes := pusher.get("a")
	require.Len(t, pushes, 1)
	assert.Contains(t, pushes[0].HTML, "How can I help today?")
	assert.Zero(t, svc.SessionCount())
}

func TestChatServiceReadOnlyDoesNotRetain(t *testing.T) {
	svc, _, _ := newService(t)

	for i := 0; i < 1000; i++ {
		msgs, devMode := svc.Snapshot(fmt.Sprintf("anon-%d", i))
		require.Len(t, msgs, 1)
		assert.Equal(t, widget.Greeting, msgs[0].Text)
		assert.False(t, devMode)
	}
	assert.Zero(t, svc.SessionCount())

	// 修改状态的操作才保留组件
	svc.SetDevMode("anon-1", true)
	assert.Equal(t, 1, svc.SessionCount())
	_, devMode := svc.Snapshot("anon-1")
	assert.True(t, devMode)
}

func TestChatServiceSnapshotReadsPersistedState(t *testing.T) {
	svc, kv, _ := newService(t)
	storage.NewStateStore(storage.Scoped(kv, sessionScope("old")), 0).SaveMessages([]models.Message{
		models.UserMessage("q"),
		models.AssistantMessage("a"),
	})

	msgs, _ := svc.Snapshot("old")
	assert.Equal(t, []models.Message{models.UserMessage("q"), models.AssistantMessage("a")}, msgs)
	assert.Zero(t, svc.SessionCount())
}

func TestChatServiceSweep(t *testing.T) {
	svc, _, _ := newService(t)
	svc.delay = 200 * time.Millisecond
	svc.ttl = time.Minute

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	svc.SetDevMode("idle", true)
	require.True(t, svc.Submit("busy", "hello"))
	require.Equal(t, 2, svc.SessionCount())

	// 未到期的会话不回收
	assert.Zero(t, svc.Sweep(base.Add(30*time.Second)))

	// 有进行中回复的会话跳过
	assert.Equal(t, 1, svc.Sweep(base.Add(2*time.Minute)))
	assert.Equal(t, 1, svc.SessionCount())

	svc.Wait()
	assert.Equal(t, 1, svc.Sweep(base.Add(2*time.Minute)))
	assert.Zero(t, svc.SessionCount())

	// 回收后状态仍可从存储恢复
	msgs, _ := svc.Snapshot("busy")
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hello! I'm running locally with no network access.", msgs[2].Text)
	_, devMode := svc.Snapshot("idle")
	assert.True(t, devMode)
}

func TestChatServiceRunSweeperStops(t *testing.T) {
	svc, _, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunSweeper未退出")
	}
}

// slowKV 对指定会话的读取一直阻塞到release关闭
type slowKV struct {
	*storage.Memory
	prefix  string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (k *slowKV) GetItem(ctx context.Context, key string) (string, bool, error) {
	if strings.HasPrefix(key, k.prefix) {
		k.once.Do(func() { close(k.entered) })
		select {
		case <-k.release:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	return k.Memory.GetItem(ctx, key)
}

func TestChatServiceSlowLoadDoesNotBlockOthers(t *testing.T) {
	kv := &slowKV{
		Memory:  storage.NewMemory(),
		prefix:  sessionScope("slow") + ":",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cfg := config.Default()
	cfg.Storage.Timeout = 5 * time.Second
	svc := NewChatService(cfg, kv, nil)

	slowDone := make(chan struct{})
	go func() {
		svc.SetDevMode("slow", true)
		close(slowDone)
	}()
	<-kv.entered

	fastDone := make(chan struct{})
	go func() {
		svc.SetDevMode("fast", true)
		close(fastDone)
	}()
	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("慢会话加载阻塞了其他会话")
	}

	close(kv.release)
	<-slowDone
	assert.Equal(t, 2, svc.SessionCount())
}

func TestChatServiceConcurrentCreateSharesWidget(t *testing.T) {
	svc, _, _ := newService(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Submit("same", "hello")
		}()
	}
	wg.Wait()
	svc.Wait()

	assert.Equal(t, 1, svc.SessionCount())
	msgs, _ := svc.Snapshot("same")
	assert.Len(t, msgs, 41)
}
