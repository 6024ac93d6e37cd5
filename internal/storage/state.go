package storage

import (
	"context"
	"encoding/json"
	"time"

	"localtrainer/internal/logger"
	"localtrainer/internal/models"
)

// 持久化使用的固定键
const (
	MessagesKey = "localtrainer.chat.v1"
	DevModeKey  = "localtrainer.devMode"
)

const defaultTimeout = 2 * time.Second

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// StateStore 聊天状态存储。所有操作静默失败：读取失败返回空值，写入失败只记录日志
type StateStore struct {
	kv      KV
	timeout time.Duration
}

// NewStateStore 创建状态存储
func NewStateStore(kv KV, timeout time.Duration) *StateStore {
	return &StateStore{kv: kv, timeout: timeoutOrDefault(timeout)}
}

func (s *StateStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// LoadMessages 读取消息列表，键不存在、解析失败或存储不可用时返回空列表
func (s *StateStore) LoadMessages() []models.Message {
	ctx, cancel := s.opContext()
	defer cancel()

	raw, found, err := s.kv.GetItem(ctx, MessagesKey)
	if err != nil {
		logger.WarnCF("storage", "读取消息失败", map[string]interface{}{"error": err.Error()})
		return []models.Message{}
	}
	if !found || raw == "" {
		return []models.Message{}
	}

	var messages []models.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		logger.WarnCF("storage", "解析消息失败", map[string]interface{}{"error": err.Error()})
		return []models.Message{}
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages
}

// SaveMessages 序列化并写入消息列表，失败不重试
func (s *StateStore) SaveMessages(messages []models.Message) {
	if messages == nil {
		messages = []models.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		logger.WarnCF("storage", "序列化消息失败", map[string]interface{}{"error": err.Error()})
		return
	}

	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.kv.SetItem(ctx, MessagesKey, string(data)); err != nil {
		logger.WarnCF("storage", "保存消息失败", map[string]interface{}{"error": err.Error()})
	}
}

// ClearMessages 删除持久化的消息
func (s *StateStore) ClearMessages() {
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.kv.RemoveItem(ctx, MessagesKey); err != nil {
		logger.WarnCF("storage", "清除消息失败", map[string]interface{}{"error": err.Error()})
	}
}

// LoadDevMode 读取开发者模式，只有"1"表示开启
func (s *StateStore) LoadDevMode() bool {
	ctx, cancel := s.opContext()
	defer cancel()

	raw, _, err := s.kv.GetItem(ctx, DevModeKey)
	if err != nil {
		logger.WarnCF("storage", "读取开发者模式失败", map[string]interface{}{"error": err.Error()})
		return false
	}
	return raw == "1"
}

// SaveDevMode 写入开发者模式标记
func (s *StateStore) SaveDevMode(enabled bool) {
	marker := "0"
	if enabled {
		marker = "1"
	}

	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.kv.SetItem(ctx, DevModeKey, marker); err != nil {
		logger.WarnCF("storage", "保存开发者模式失败", map[string]interface{}{"error": err.Error()})
	}
}
