package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"localtrainer/internal/render"
	"localtrainer/internal/reply"
	"localtrainer/internal/storage"
	"localtrainer/internal/widget"
)

// 终端会话在存储中的作用域
const terminalScope = "terminal"

const chatHelp = `可用命令:
  /dev on|off - 切换开发者模式
  /reset      - 重置对话
  /help       - 显示帮助
  /quit       - 退出程序
`

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "在终端中与LocalTrainer对话",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			kv, err := storage.Open(cfg.Storage)
			if err != nil {
				return fmt.Errorf("打开存储失败: %w", err)
			}
			defer kv.Close()

			term := render.NewTerminal(os.Stdout, cfg.Terminal.Width, true)
			term.SetPrompt("> ")

			store := storage.NewStateStore(storage.Scoped(kv, terminalScope), cfg.Storage.Timeout)
			w := widget.New(store, term, reply.NewEngine(cfg.Chat.Seed), widget.Options{
				ReplyDelay: cfg.Chat.ReplyDelay,
				Name:       terminalScope,
			})

			return runChat(os.Stdin, term, w)
		},
	}
}

// runChat 读取输入行并绑定到组件，输入结束后等待未完成的回复。
// 所有终端输出都经过term，避免与回复的重绘交错
func runChat(in io.Reader, term *render.Terminal, w *widget.Widget) error {
	defer w.Wait()
	w.Render()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !strings.HasPrefix(line, "/") {
			if w.Submit(line) == nil {
				term.Notify("")
			}
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case "/quit", "/exit":
			return nil
		case "/reset":
			w.Reset()
		case "/dev":
			if len(parts) != 2 || (parts[1] != "on" && parts[1] != "off") {
				term.Notify("用法: /dev on|off")
				continue
			}
			w.SetDevMode(parts[1] == "on")
			term.Notify("开发者模式: %s", parts[1])
		case "/help":
			term.Notify("%s", strings.TrimRight(chatHelp, "\n"))
		default:
			term.Notify("未知命令: %s", parts[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取输入失败: %w", err)
	}
	return nil
}
