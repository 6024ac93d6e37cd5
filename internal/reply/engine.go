// Package reply 实现离线助手的规则回复引擎
package reply

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// 开发者训练命令前缀
const trainPrefix = "TRAIN:"

// 训练命令及其固定回复，顺序即未知命令提示中的顺序
var trainCommands = []struct {
	Name  string
	Reply string
}{
	{"TRAIN:ADD", "Staged samples added to buffer. PII redaction: ON. Use TRAIN:PREPARE to tokenize & split."},
	{"TRAIN:PREPARE", "Prepared dataset (tokenized, balanced). Ready to fine-tune with LoRA/QLoRA."},
	{"TRAIN:EVAL", "Evaluation complete: perplexity=5.3, exact_match=72%. Baseline improved by +6%."},
	{"TRAIN:EXPORT_ADAPTER", "Adapter exported: ./adapters/domain-adapter-v1.safetensors"},
	{"TRAIN:LOAD_ADAPTER", "Adapter loaded. Active profile: domain-adapter-v1"},
	{"TRAIN:RESET_BUFFER", "Training buffer cleared. Persistent datasets unaffected."},
	{"TRAIN:CONFIRM_PII", "PII-confirmation acknowledged. Redacted samples approved for training."},
}

// 启发式分类，按顺序匹配，第一个命中的生效
var heuristics = []struct {
	Name    string
	Pattern *regexp.Regexp
	Reply   string
}{
	{"greeting", regexp.MustCompile(`(?i)hello|hi|hey`), "Hello! I'm running locally with no network access."},
	{"privacy", regexp.MustCompile(`(?i)offline|privacy|private`), "Everything stays on-device. No cloud calls, telemetry, or tracking."},
	{"finetune", regexp.MustCompile(`(?i)lora|qlora|fine[- ]?tune`), "Use adapter-based fine-tuning (LoRA/QLoRA) for efficient personalization on your hardware."},
	{"dataset", regexp.MustCompile(`(?i)dataset|data set`), "You can import JSONL/CSV/TXT, tag samples, and manage buffers locally."},
	{"help", regexp.MustCompile(`(?i)help|commands`), "Try toggling Developer mode and sending TRAIN:ADD or TRAIN:PREPARE."},
}

// Fillers 兜底回复模板
var Fillers = []string{
	"Got it. Running locally, I can help summarize, plan, or prototype ideas offline.",
	"Acknowledged. Would you like a brief outline or a step-by-step plan?",
	"Processed. For training flows, check the Developer Mode section below.",
}

// Rule 一条回复规则
type Rule struct {
	Name    string
	Match   func(input string, devMode bool) bool
	Respond func(input string) string
}

// Engine 规则回复引擎
type Engine struct {
	rules []Rule
	rng   *rand.Rand
	mu    sync.Mutex
}

// NewEngine 创建回复引擎，seed为0时按当前时间播种
func NewEngine(seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewEngineWithSource(rand.NewSource(seed))
}

// NewEngineWithSource 使用指定随机源创建回复引擎
func NewEngineWithSource(src rand.Source) *Engine {
	return &Engine{
		rules: DefaultRules(),
		rng:   rand.New(src),
	}
}

// DefaultRules 返回默认规则表：训练命令优先，其次是启发式分类
func DefaultRules() []Rule {
	rules := []Rule{{
		Name:    "train",
		Match:   IsTrainCommand,
		Respond: TrainReply,
	}}

	for _, h := range heuristics {
		h := h
		rules = append(rules, Rule{
			Name: h.Name,
			Match: func(input string, _ bool) bool {
				return h.Pattern.MatchString(input)
			},
			Respond: func(string) string {
				return h.Reply
			},
		})
	}
	return rules
}

// Reply 根据输入和开发者模式返回回复
func (e *Engine) Reply(input string, devMode bool) string {
	text := strings.TrimSpace(input)
	for _, rule := range e.rules {
		if rule.Match(text, devMode) {
			return rule.Respond(text)
		}
	}
	return e.filler()
}

// filler 随机选择一个兜底回复
func (e *Engine) filler() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Fillers[e.rng.Intn(len(Fillers))]
}

// IsTrainCommand 开发者模式下以TRAIN:开头（不区分大小写）的输入视为训练命令
func IsTrainCommand(input string, devMode bool) bool {
	if !devMode {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(input)), trainPrefix)
}

// TrainReply 根据第一个词分派训练命令
func TrainReply(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return UnknownCommandReply()
	}

	cmd := strings.ToUpper(fields[0])
	for _, c := range trainCommands {
		if c.Name == cmd {
			return c.Reply
		}
	}
	return UnknownCommandReply()
}

// UnknownCommandReply 未知训练命令的提示
func UnknownCommandReply() string {
	return "Unknown TRAIN command. Supported: " + strings.Join(CommandNames(), ", ")
}

// CommandNames 返回支持的训练命令
func CommandNames() []string {
	names := make([]string, 0, len(trainCommands))
	for _, c := range trainCommands {
		names = append(names, c.Name)
	}
	return names
}
