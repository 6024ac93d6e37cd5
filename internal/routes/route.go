package routes

import (
	"github.com/gin-gonic/gin"

	"localtrainer/internal/handlers"
	"localtrainer/internal/middleware"
	"localtrainer/internal/web"
)

// NewRouter 创建gin引擎并注册中间件和所有路由
func NewRouter(chat handlers.ChatService, ws handlers.ConnectionHandler) *gin.Engine {
	r := gin.New()
	middleware.Setup(r)
	r.SetHTMLTemplate(web.Templates())

	RegisterRoutes(r, chat, ws)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, chat handlers.ChatService, ws handlers.ConnectionHandler) {
	handlers.RegisterHealth(r)

	// 注册聊天路由
	handlers.NewChatHandler(chat, ws).RegisterRoutes(r)
}
