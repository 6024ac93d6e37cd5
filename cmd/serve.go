package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"localtrainer/internal/logger"
	"localtrainer/internal/routes"
	"localtrainer/internal/services"
	"localtrainer/internal/storage"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动聊天页面HTTP服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if addr != "" {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return fmt.Errorf("无效的监听地址 %q: %w", addr, err)
				}
				p, err := strconv.Atoi(port)
				if err != nil {
					return fmt.Errorf("无效的端口 %q: %w", port, err)
				}
				cfg.Server.Host, cfg.Server.Port = host, p
			}

			gin.SetMode(cfg.Server.Mode)

			kv, err := storage.Open(cfg.Storage)
			if err != nil {
				return fmt.Errorf("打开存储失败: %w", err)
			}
			defer kv.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hub := services.NewWSService(cfg.WebSocket)
			go hub.Run(ctx)

			chat := services.NewChatService(cfg, kv, hub)
			go chat.RunSweeper(ctx)
			srv := &http.Server{
				Addr:              cfg.Server.Addr(),
				Handler:           routes.NewRouter(chat, hub),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.InfoCF("server", "HTTP服务已启动", map[string]interface{}{
					"addr":    srv.Addr,
					"storage": cfg.Storage.Driver,
				})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("HTTP服务异常退出: %w", err)
				}
			case <-ctx.Done():
			}

			logger.InfoCF("server", "正在关闭服务", nil)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.WarnCF("server", "关闭HTTP服务失败", map[string]interface{}{"error": err.Error()})
			}

			// 等待进行中的回复写入存储后再关闭存储
			chat.Wait()
			logger.InfoCF("server", "服务已关闭", nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址 host:port，覆盖配置文件")
	return cmd
}
