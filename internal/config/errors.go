package config

import "errors"

// 配置相关错误
var (
	ErrInvalidPort        = errors.New("服务器端口必须在1到65535之间")
	ErrInvalidMode        = errors.New("未知的服务器运行模式")
	ErrNegativeDelay      = errors.New("回复延迟不能为负数")
	ErrNegativeSessionTTL = errors.New("会话保留时间不能为负数")
	ErrUnknownDriver      = errors.New("未知的存储驱动")
	ErrPingPeriod         = errors.New("心跳间隔必须小于Pong等待时间")
	ErrInvalidLogFormat   = errors.New("未知的日志格式")
)
