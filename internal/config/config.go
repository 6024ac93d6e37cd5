// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var globalConfig *Config

// 存储驱动
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config 应用程序配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chat      ChatConfig      `yaml:"chat"`
	Storage   StorageConfig   `yaml:"storage"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Log       LogConfig       `yaml:"log"`
	Terminal  TerminalConfig  `yaml:"terminal"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host string `yaml:"host"` // 服务器监听地址
	Port int    `yaml:"port"` // 服务器监听端口
	Mode string `yaml:"mode"` // gin运行模式：debug/release/test
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ChatConfig 对话配置
type ChatConfig struct {
	ReplyDelay time.Duration `yaml:"reply_delay"` // 模拟助手思考时间
	Seed       int64         `yaml:"seed"`        // 随机回复种子，0表示按时间播种
	SessionTTL time.Duration `yaml:"session_ttl"` // 空闲会话在内存中的保留时间
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver  string        `yaml:"driver"`  // memory/sqlite/redis
	Timeout time.Duration `yaml:"timeout"` // 单次存储操作超时
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Redis   RedisConfig   `yaml:"redis"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path string `yaml:"path"` // 数据库文件路径
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`     // Redis地址 host:port
	Password string `yaml:"password"` // Redis密码
	DB       int    `yaml:"db"`       // Redis数据库编号
	Prefix   string `yaml:"prefix"`   // 键前缀
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`  // 读缓冲区大小
	WriteBufferSize int           `yaml:"write_buffer_size"` // 写缓冲区大小
	PingPeriod      time.Duration `yaml:"ping_period"`       // 心跳间隔
	PongWait        time.Duration `yaml:"pong_wait"`         // 等待Pong响应的超时时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // console/json
}

// TerminalConfig 终端界面配置
type TerminalConfig struct {
	Width int `yaml:"width"` // 渲染宽度
}

// GetConfig 获取全局配置实例
func GetConfig() *Config {
	return globalConfig
}

// Default 返回默认配置
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	globalConfig = config
	return config
}

// Load 从文件加载配置
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	globalConfig = &config

	return &config, nil
}

// applyDefaults 设置默认值
func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}

	if config.Chat.ReplyDelay == 0 {
		config.Chat.ReplyDelay = 300 * time.Millisecond
	}
	if config.Chat.SessionTTL == 0 {
		config.Chat.SessionTTL = 30 * time.Minute
	}

	if config.Storage.Driver == "" {
		config.Storage.Driver = DriverMemory
	}
	if config.Storage.Timeout == 0 {
		config.Storage.Timeout = 2 * time.Second
	}
	if config.Storage.SQLite.Path == "" {
		config.Storage.SQLite.Path = "data/localtrainer.db"
	}
	if config.Storage.Redis.Addr == "" {
		config.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if config.Storage.Redis.Prefix == "" {
		config.Storage.Redis.Prefix = "localtrainer"
	}

	if config.WebSocket.ReadBufferSize == 0 {
		config.WebSocket.ReadBufferSize = 1024
	}
	if config.WebSocket.WriteBufferSize == 0 {
		config.WebSocket.WriteBufferSize = 1024
	}
	if config.WebSocket.PingPeriod == 0 {
		config.WebSocket.PingPeriod = 30 * time.Second
	}
	if config.WebSocket.PongWait == 0 {
		config.WebSocket.PongWait = 60 * time.Second
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}

	if config.Terminal.Width <= 0 {
		config.Terminal.Width = 80
	}
}

// validateConfig 验证配置是否有效
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return ErrInvalidPort
	}

	switch config.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidMode, config.Server.Mode)
	}

	if config.Chat.ReplyDelay < 0 {
		return ErrNegativeDelay
	}
	if config.Chat.SessionTTL < 0 {
		return ErrNegativeSessionTTL
	}

	switch config.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDriver, config.Storage.Driver)
	}

	// 心跳间隔必须小于Pong等待时间，否则连接会在心跳前超时
	if config.WebSocket.PingPeriod >= config.WebSocket.PongWait {
		return ErrPingPeriod
	}

	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, config.Log.Format)
	}

	return nil
}
