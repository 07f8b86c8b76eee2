package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-think/openssl"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Warfront/internal/shared/security"
	"Warfront/internal/shared/utils"
	"Warfront/modules/kit/logx"
)

const outChanSize = 1000

type WsServer struct {
	conn     *websocket.Conn
	router   *Router
	outChan  chan *WsMsgResp
	Seq      int64
	property map[string]any
	sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
	// plain 为 true 时收发明文 JSON 文本帧，不握手也不压缩加密
	plain bool
	log   logx.Logger
}

func NewWsServer(wsConn *websocket.Conn, plain bool, l logx.Logger) *WsServer {
	if l == nil {
		l = logx.Nop()
	}
	return &WsServer{
		conn:     wsConn,
		outChan:  make(chan *WsMsgResp, outChanSize),
		property: make(map[string]any),
		Seq:      0,
		done:     make(chan struct{}),
		plain:    plain,
		log:      l,
	}
}

func (s *WsServer) Router(router *Router) {
	s.router = router
}

func (s *WsServer) SetProperty(key string, value any) {
	s.Lock()
	defer s.Unlock()
	s.property[key] = value
}

func (s *WsServer) GetProperty(key string) any {
	s.RLock()
	defer s.RUnlock()
	return s.property[key]
}

func (s *WsServer) Addr() string {
	return s.conn.RemoteAddr().String()
}

// Push 向客户端推送消息，不阻塞：队列满或连接已关闭时丢弃。
func (s *WsServer) Push(name string, data any) {
	s.send(&WsMsgResp{Body: &RespBody{Seq: 0, Name: name, Msg: data}})
}

func (s *WsServer) send(msg *WsMsgResp) {
	select {
	case <-s.done:
	case s.outChan <- msg:
	default:
		s.log.Warn("ws_server out queue full, message dropped", zap.String("name", msg.Body.Name))
	}
}

func (s *WsServer) Run() {
	go s.readMsgLoop()
	go s.writeMsgLoop()
}

func (s *WsServer) readMsgLoop() {
	defer func() {
		if err := recover(); err != nil {
			e := fmt.Sprintf("%v", err)
			s.log.Error("ws readMsgLoop error", zap.String("err", e))
		}
		s.Close()
	}()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("ws_server read msg", zap.Error(err))
			return
		}

		payload, ok := s.decode(data)
		if !ok {
			continue
		}

		reqBody := ReqBody{}
		if err := json.Unmarshal(payload, &reqBody); err != nil {
			s.log.Error("ws_server readMsgLoop unmarshal json error", zap.Error(err))
			continue
		}

		// 分发消息，req 和 resp 的 Seq 必须一致
		req := WsMsgReq{Body: &reqBody, Conn: s}
		resp := WsMsgResp{Body: &RespBody{Seq: req.Body.Seq, Name: reqBody.Name, Msg: reqBody.Msg}}
		if reqBody.Name == HeartbeatMsg {
			h := &Heartbeat{}
			_ = Bind(&req, h)
			h.STime = time.Now().UnixMilli()
			resp.Body.Msg = h
		} else {
			s.log.Debug("ws_server read msg", zap.Any("data", reqBody))
			s.router.Dispatch(&req, &resp)
		}

		s.send(&resp)
	}
}

// decode 前端发送的是压缩加密过的 json：先解压，再用握手下发的密钥解密。
func (s *WsServer) decode(data []byte) ([]byte, bool) {
	if s.plain {
		return data, true
	}
	secretData, err := security.UnZip(data)
	if err != nil {
		s.log.Error("ws_server readMsgLoop unzip", zap.Error(err))
		return nil, false
	}

	secretKey := s.GetProperty(propSecretKey)
	if secretKey == nil {
		s.log.Error("ws_server readMsgLoop not found secretKey")
		return nil, false
	}

	key := secretKey.(string)
	decryptedData, err := security.AesCBCDecrypt(secretData, []byte(key), []byte(key), openssl.ZEROS_PADDING)
	if err != nil {
		s.log.Error("ws_server readMsgLoop decrypt error", zap.Error(err))
		// 出错后，重新握手
		s.handshake()
		return nil, false
	}
	return decryptedData, true
}

func (s *WsServer) writeMsgLoop() {
	for {
		select {
		case msg := <-s.outChan:
			if msg.Body.Name != HeartbeatMsg {
				s.log.Debug("ws_server write msg", zap.String("name", msg.Body.Name), zap.Int("code", msg.Body.Code))
			}
			s.write(msg)
		case <-s.done:
			return
		}
	}
}

func (s *WsServer) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}

func (s *WsServer) Done() <-chan struct{} {
	return s.done
}

func (s *WsServer) write(msg *WsMsgResp) {
	marshal, err := json.Marshal(msg.Body)
	if err != nil {
		s.log.Error("ws_server write marshal json error", zap.Error(err))
		return
	}

	if s.plain {
		if err := s.conn.WriteMessage(websocket.TextMessage, marshal); err != nil {
			s.log.Error("ws_server write error", zap.Error(err))
		}
		return
	}

	secretKey := s.GetProperty(propSecretKey)
	if secretKey == nil {
		s.log.Error("ws_server write not found secretKey", zap.String("name", msg.Body.Name))
		return
	}

	key := secretKey.(string)
	encryptedData, err := security.AesCBCEncrypt(marshal, []byte(key), []byte(key), openssl.ZEROS_PADDING)
	if err != nil {
		s.log.Error("ws_server write encrypt error", zap.Error(err))
		return
	}

	zip, err := security.Zip(encryptedData)
	if err != nil {
		s.log.Error("ws_server write zip error", zap.Error(err))
		return
	}

	// 压缩后的密文是二进制字节流，必须走 BinaryMessage，不能走 TextMessage
	if err := s.conn.WriteMessage(websocket.BinaryMessage, zip); err != nil {
		s.log.Error("ws_server write error", zap.Error(err))
	}
}

func (s *WsServer) handshake() {
	if s.plain {
		return
	}
	secretKey := ""
	key := s.GetProperty(propSecretKey)
	if key == nil {
		secretKey = utils.RandSeq(16)
	} else {
		secretKey = key.(string)
	}

	handshake := &Handshake{Key: secretKey}
	body := &RespBody{Name: HandshakeMsg, Msg: handshake}

	data, err := json.Marshal(body)
	if err != nil {
		s.log.Error("ws_server handshake marshal json error", zap.Error(err))
		return
	}

	s.SetProperty(propSecretKey, secretKey)

	zipData, err := security.Zip(data)
	if err != nil {
		s.log.Error("ws_server handshake zip error", zap.Error(err))
		return
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, zipData); err != nil {
		s.log.Error("ws_server handshake write error", zap.Error(err))
	}
}
