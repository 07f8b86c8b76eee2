package logx

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorMeta 是从错误链提取出来、便于打印的字段。
type ErrorMeta struct {
	Error      string
	Code       string
	Msg        string
	Reason     string
	Data       map[string]any
	CauseChain []string
	Origin     string
	Stack      string
}

func BuildErrorMeta(err error) ErrorMeta {
	if err == nil {
		return ErrorMeta{}
	}
	out := ErrorMeta{Error: err.Error()}

	var cp interface{ CodeText() string }
	if errors.As(err, &cp) {
		out.Code = cp.CodeText()
	}
	var mp interface{ Msg() string }
	if errors.As(err, &mp) {
		out.Msg = mp.Msg()
	}
	var dp interface{ Data() map[string]any }
	if errors.As(err, &dp) {
		out.Data = dp.Data()
	}
	var rp interface{ Reason() string }
	if errors.As(err, &rp) {
		out.Reason = rp.Reason()
	}
	var sp interface{ Stack() []uintptr }
	if errors.As(err, &sp) {
		out.Origin, out.Stack = formatStack(sp.Stack(), 32)
	}
	for cur, i := errors.Unwrap(err), 0; cur != nil && i < 20; cur, i = errors.Unwrap(cur), i+1 {
		out.CauseChain = append(out.CauseChain, fmt.Sprintf("%T: %v", cur, cur))
	}
	return out
}

func formatStack(pcs []uintptr, maxFrames int) (origin string, stack string) {
	if len(pcs) == 0 {
		return "", ""
	}
	frames := runtime.CallersFrames(pcs)
	lines := make([]string, 0, maxFrames)
	for i := 0; i < maxFrames; i++ {
		f, more := frames.Next()
		if f.Function == "" && f.File == "" {
			break
		}
		line := fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line)
		if origin == "" {
			origin = line
		}
		lines = append(lines, line)
		if !more {
			break
		}
	}
	return origin, strings.Join(lines, "\n")
}
