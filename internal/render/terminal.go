package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"localtrainer/internal/models"
)

// 清屏并把光标移到左上角
const clearScreen = "\033[H\033[2J"

var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14"))

	userBubbleStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("236")).
				Padding(0, 1)
)

// Terminal 终端渲染器
type Terminal struct {
	out    io.Writer
	width  int
	clear  bool
	prompt string
	mu     sync.Mutex
}

// NewTerminal 创建终端渲染器，clear为true时每次重绘前清屏
func NewTerminal(out io.Writer, width int, clear bool) *Terminal {
	if width < 20 {
		width = 20
	}
	return &Terminal{out: out, width: width, clear: clear}
}

// SetPrompt 设置重绘后显示的输入提示
func (t *Terminal) SetPrompt(prompt string) {
	t.mu.Lock()
	t.prompt = prompt
	t.mu.Unlock()
}

// Render 清屏后逐条输出消息
func (t *Terminal) Render(messages []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	if t.clear {
		b.WriteString(clearScreen)
	}
	b.WriteString(View(messages, t.width))
	b.WriteString(t.prompt)
	fmt.Fprint(t.out, b.String())
}

// Notify 输出一行提示并重新显示输入提示，与重绘共用同一把锁
func (t *Terminal) Notify(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if format != "" {
		fmt.Fprintf(t.out, format+"\n", args...)
	}
	fmt.Fprint(t.out, t.prompt)
}

// View 返回整个对话的终端视图
func View(messages []models.Message, width int) string {
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		blocks = append(blocks, bubble(m, width))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// bubble 渲染单条消息：用户消息靠右，助手消息靠左
func bubble(m models.Message, width int) string {
	// 最大宽度为85%，扣除边框和内边距
	maxWidth := width * 85 / 100
	textWidth := maxWidth - 4
	if textWidth < 10 {
		textWidth = 10
	}

	text := m.Text
	if lipgloss.Width(text) > textWidth {
		text = lipgloss.NewStyle().Width(textWidth).Render(text)
	}

	if m.IsUser() {
		body := userBubbleStyle.Render(text)
		label := userLabelStyle.Render(UserLabel)
		block := lipgloss.JoinVertical(lipgloss.Right, label, body)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}

	body := assistantBubbleStyle.Render(text)
	label := assistantLabelStyle.Render(AssistantLabel)
	return lipgloss.JoinVertical(lipgloss.Left, label, body)
}
