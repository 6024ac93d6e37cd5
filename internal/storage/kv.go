// Package storage 提供键值存储后端和聊天状态持久化
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"localtrainer/internal/config"
)

// ErrClosed 存储已关闭
var ErrClosed = errors.New("存储已关闭")

// KV 键值存储接口，语义与浏览器本地存储一致
type KV interface {
	// GetItem 读取键，不存在时found为false
	GetItem(ctx context.Context, key string) (value string, found bool, err error)

	// SetItem 写入键
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem 删除键，键不存在不视为错误
	RemoveItem(ctx context.Context, key string) error

	// Close 释放资源
	Close() error
}

// Open 根据配置打开存储后端
func Open(cfg config.StorageConfig) (KV, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(), nil
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverRedis:
		r, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeoutOrDefault(cfg.Timeout))
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownDriver, cfg.Driver)
	}
}

type scoped struct {
	kv     KV
	prefix string
}

// Scoped 为每个键加上作用域前缀，scope为空时原样返回
func Scoped(kv KV, scope string) KV {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return kv
	}
	return &scoped{kv: kv, prefix: scope + ":"}
}

func (s *scoped) GetItem(ctx context.Context, key string) (string, bool, error) {
	return s.kv.GetItem(ctx, s.prefix+key)
}

func (s *scoped) SetItem(ctx context.Context, key, value string) error {
	return s.kv.SetItem(ctx, s.prefix+key, value)
}

func (s *scoped) RemoveItem(ctx context.Context, key string) error {
	return s.kv.RemoveItem(ctx, s.prefix+key)
}

// Close 作用域视图不拥有底层存储
func (s *scoped) Close() error {
	return nil
}
