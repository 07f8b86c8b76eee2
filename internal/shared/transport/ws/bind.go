package ws

import (
	"errors"

	"github.com/go-viper/mapstructure/v2"
)

var ErrEmptyMsg = errors.New("ws request msg is empty")

// Validator 由需要校验的请求结构实现，Bind 解码后调用。
type Validator interface {
	Validate() error
}

// Bind 按 json tag 把 req.Body.Msg 解码到 dst。
// 数字与字符串之间弱类型转换，客户端把 id 写成 "3" 也能解析。
func Bind(req *WsMsgReq, dst any) error {
	if req == nil || req.Body == nil || req.Body.Msg == nil {
		return ErrEmptyMsg
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(req.Body.Msg); err != nil {
		return err
	}
	if v, ok := dst.(Validator); ok {
		return v.Validate()
	}
	return nil
}
