package transport

import "Warfront/modules/kit/errx"

// BizCode 表示业务码的强类型封装，用于在日志上下文中减少误传风险。
type BizCode int

// 对外业务码，HTTP/WS/gRPC 响应体里的 code 字段。
const (
	OK           = 0
	InvalidParam = 1
	SystemError  = 2

	SessionInvalid      = 100
	UpstreamInternal    = 101
	UpstreamTimeout     = 102
	UpstreamUnavailable = 103
	Forbidden           = 104

	InvalidSide    = 200
	InvalidCommand = 201
	BattleNotFound = 202
	ArmyNotFound   = 203
	NotAuthority   = 204
	Precondition   = 205
)

var codeByErr = map[errx.Code]int{
	errx.CodeReqParam:        InvalidParam,
	errx.CodeInvalidParam:    InvalidParam,
	errx.CodeInternal:        SystemError,
	errx.CodeOutcomeFailed:   SystemError,
	errx.CodeTimeout:         UpstreamTimeout,
	errx.CodeUnavailable:     UpstreamUnavailable,
	errx.CodeUnauthenticated: SessionInvalid,
	errx.CodeInvalidSide:     InvalidSide,
	errx.CodeInvalidCommand:  InvalidCommand,
	errx.CodeBattleNotFound:  BattleNotFound,
	errx.CodeArmyNotFound:    ArmyNotFound,
	errx.CodeNotAuthority:    NotAuthority,
	errx.CodePrecondition:    Precondition,
}

// CodeOf 把错误映射为业务码，nil 为 OK，未知错误为 SystemError。
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	if c, ok := codeByErr[errx.CodeOf(err)]; ok {
		return c
	}
	return SystemError
}
