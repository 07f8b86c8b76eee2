package ws

// ReqBody 是客户端请求，Seq 由客户端递增，响应原样带回。
type ReqBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Msg  any    `json:"msg"`
}

// RespBody 同时用于请求的响应与服务端主动推送（推送的 Seq 为 0）。
type RespBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Code int    `json:"code"`
	Msg  any    `json:"msg"`
}

type WsMsgReq struct {
	Body *ReqBody
	Conn WSConn
}

type WsMsgResp struct {
	Body *RespBody
}

// WSConn 是 handler 与观战会话看到的连接。
type WSConn interface {
	Addr() string
	// Push 不阻塞，发送队列满时丢弃
	Push(name string, data any)
	Close()
	// Done 在连接关闭时被关闭
	Done() <-chan struct{}
}

// Handshake 下发 AES 密钥，仅加密模式使用。
type Handshake struct {
	Key string `json:"key"`
}

// Heartbeat 客户端带 ctime，服务端回填 stime，均为毫秒时间戳。
type Heartbeat struct {
	CTime int64 `json:"ctime"`
	STime int64 `json:"stime"`
}

const (
	HandshakeMsg = "handshake"
	HeartbeatMsg = "heartbeat"

	propSecretKey = "secretKey"
)
