// Package logger 提供基于zerolog的结构化日志
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Logger()
)

// Setup 按级别和格式初始化全局日志
func Setup(level, format string) {
	SetOutput(os.Stderr, format)
	SetLevel(level)
}

// SetOutput 设置日志输出目标，format为json时输出JSON行
func SetOutput(w io.Writer, format string) {
	var out io.Writer = w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: w != os.Stderr}
	}

	mu.Lock()
	base = zerolog.New(out).Level(base.GetLevel()).With().Timestamp().Logger()
	mu.Unlock()
}

// SetLevel 设置日志级别，无法识别时使用info
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	mu.Lock()
	base = base.Level(lvl)
	mu.Unlock()
}

// Get 返回当前的zerolog实例
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func write(ev *zerolog.Event, component, msg string, fields map[string]interface{}) {
	if ev == nil {
		return
	}
	if component != "" {
		ev = ev.Str("component", component)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

// DebugCF 输出带组件和字段的debug日志
func DebugCF(component, msg string, fields map[string]interface{}) {
	l := Get()
	write(l.Debug(), component, msg, fields)
}

// InfoCF 输出带组件和字段的info日志
func InfoCF(component, msg string, fields map[string]interface{}) {
	l := Get()
	write(l.Info(), component, msg, fields)
}

// WarnCF 输出带组件和字段的warn日志
func WarnCF(component, msg string, fields map[string]interface{}) {
	l := Get()
	write(l.Warn(), component, msg, fields)
}

// ErrorCF 输出带组件和字段的error日志
func ErrorCF(component, msg string, fields map[string]interface{}) {
	l := Get()
	write(l.Error(), component, msg, fields)
}
