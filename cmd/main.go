package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"localtrainer/internal/config"
	"localtrainer/internal/logger"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "localtrainer",
		Short:         "LocalTrainer 离线助手演示聊天组件",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（为空时使用默认配置）")

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	return root
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(configPath); err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
