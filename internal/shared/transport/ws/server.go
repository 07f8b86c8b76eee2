package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Warfront/modules/kit/logx"
)

type Server struct {
	router   *Router
	secret   bool
	upgrader websocket.Upgrader
	log      logx.Logger
}

// NewServer secret 为 true 时连接建立后先握手下发密钥，之后收发压缩加密的二进制帧。
func NewServer(r *Router, secret bool, l logx.Logger) *Server {
	if l == nil {
		l = logx.Nop()
	}
	return &Server{
		router: r,
		secret: secret,
		upgrader: websocket.Upgrader{
			// 允许所有CORS跨域请求
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: l,
	}
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	wsConn, err := s.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		s.log.Error("websocket upgrade error", zap.Error(err))
		return
	}

	s.log.Info("websocket upgrade success", zap.String("addr", wsConn.RemoteAddr().String()))

	wsServer := NewWsServer(wsConn, !s.secret, s.log)
	wsServer.Router(s.router)
	wsServer.Run()
	wsServer.handshake()
}
