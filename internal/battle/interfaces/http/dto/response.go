package dto

// Response 是 HTTP 接口统一的响应体。
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(code int, data any) Response {
	return Response{Code: code, Msg: "ok", Data: data}
}

func Error(code int, msg string) Response {
	return Response{Code: code, Msg: msg}
}
