package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"localtrainer/internal/config"
	"localtrainer/internal/logger"
	"localtrainer/internal/models"
)

const writeWait = 10 * time.Second

type registration struct {
	conn    *websocket.Conn
	session string
}

type outbound struct {
	session string
	data    []byte
}

// WSService 按会话推送渲染结果的WebSocket服务。所有数据帧都由Run协程写出
type WSService struct {
	cfg        config.WebSocketConfig
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]string
	broadcast  chan outbound
	register   chan registration
	unregister chan *websocket.Conn
	done       chan struct{}
}

// NewWSService 创建新的WebSocket服务实例
func NewWSService(cfg config.WebSocketConfig) *WSService {
	return &WSService{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan outbound, 256),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run 启动WebSocket服务，ctx结束时关闭所有连接
func (s *WSService) Run(ctx context.Context) {
	defer func() {
		for conn := range s.clients {
			conn.Close()
		}
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case reg := <-s.register:
			s.clients[reg.conn] = reg.session

		case conn := <-s.unregister:
			if _, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				conn.Close()
			}

		case msg := <-s.broadcast:
			for conn, session := range s.clients {
				if session != msg.session {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					logger.WarnCF("ws", "发送消息失败", map[string]interface{}{"error": err.Error()})
					conn.Close()
					delete(s.clients, conn)
				}
			}
		}
	}
}

// Push 向某个会话的所有连接推送消息
func (s *WSService) Push(session string, msg models.PushMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorCF("ws", "序列化推送消息失败", map[string]interface{}{"error": err.Error()})
		return
	}

	select {
	case s.broadcast <- outbound{session: session, data: data}:
	case <-s.done:
	}
}

// HandleConnection 处理WebSocket连接，onOpen在连接注册后调用
func (s *WSService) HandleConnection(c *gin.Context, session string, onOpen func()) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WarnCF("ws", "升级WebSocket连接失败", map[string]interface{}{"error": err.Error()})
		return
	}

	select {
	case s.register <- registration{conn: conn, session: session}:
	case <-s.done:
		conn.Close()
		return
	}

	stop := make(chan struct{})
	defer func() {
		close(stop)
		select {
		case s.unregister <- conn:
		case <-s.done:
		}
	}()

	conn.SetReadLimit(int64(s.cfg.ReadBufferSize))
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	go s.keepAlive(conn, stop)

	if onOpen != nil {
		onOpen()
	}

	// 页面不会发送数据，读循环只用于处理控制帧和检测断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WarnCF("ws", "读取WebSocket消息错误", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

// keepAlive 定期发送Ping；WriteControl可以与Run中的写操作并发
func (s *WSService) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
