package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"localtrainer/internal/logger"
	"localtrainer/internal/middleware"
	"localtrainer/internal/models"
	"localtrainer/internal/render"
)

// Renderer 能按会话重新推送消息列表的服务
type Renderer interface {
	Render(sessionID string)
}

// ConnectionHandler WebSocket连接处理
type ConnectionHandler interface {
	HandleConnection(c *gin.Context, session string, onOpen func())
}

// ChatService 处理器依赖的对话服务
type ChatService interface {
	models.ChatService
	Renderer
}

// ChatHandler 聊天页面和接口处理器
type ChatHandler struct {
	chat ChatService
	ws   ConnectionHandler
	now  func() time.Time
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(chat ChatService, ws ConnectionHandler) *ChatHandler {
	return &ChatHandler{chat: chat, ws: ws, now: time.Now}
}

type submitRequest struct {
	Text string `json:"text"`
}

type devModeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
	DevMode  bool             `json:"dev_mode"`
}

// Index 渲染聊天页面
func (h *ChatHandler) Index(c *gin.Context) {
	messages, devMode := h.chat.Snapshot(middleware.SessionID(c))

	thread, err := render.HTML(messages)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Thread":  thread,
		"DevMode": devMode,
		"Year":    h.now().Year(),
	})
}

// GetMessages 返回消息列表和开发者模式
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, devMode := h.chat.Snapshot(middleware.SessionID(c))
	c.JSON(http.StatusOK, messagesResponse{Messages: messages, DevMode: devMode})
}

// PostMessage 提交用户输入，回复通过WebSocket推送
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.chat.Submit(middleware.SessionID(c), req.Text) {
		c.JSON(http.StatusOK, gin.H{"accepted": false})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// PutDevMode 切换开发者模式
func (h *ChatHandler) PutDevMode(c *gin.Context) {
	var req devModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.chat.SetDevMode(middleware.SessionID(c), *req.Enabled)
	c.Status(http.StatusNoContent)
}

// PostReset 重置对话
func (h *ChatHandler) PostReset(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	messages := h.chat.Reset(sessionID)

	logger.InfoCF("chat", "对话已重置", map[string]interface{}{"session": sessionID})
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// HandleWebSocket 建立推送连接，连接建立后立即推送一次当前消息列表
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	h.ws.HandleConnection(c, sessionID, func() {
		h.chat.Render(sessionID)
	})
}

// RegisterRoutes 注册路由
func (h *ChatHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/ws", h.HandleWebSocket)

	api := r.Group("/api")
	api.GET("/messages", h.GetMessages)
	api.POST("/messages", h.PostMessage)
	api.PUT("/devmode", h.PutDevMode)
	api.POST("/reset", h.PostReset)
}
