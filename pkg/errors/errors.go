package errors

import (
	"errors"
	"fmt"
)

// 错误分类：Handler 层据此决定 HTTP 状态码
var (
	ErrValidation = errors.New("参数校验失败")
	ErrNotFound   = errors.New("资源不存在")
	ErrConflict   = errors.New("状态冲突")
)

// Error 带分类的业务错误，Message 直接返回给调用方
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap 使 errors.Is(err, ErrNotFound) 等分类判断生效
func (e *Error) Unwrap() error { return e.Kind }

// Validation 输入缺失或格式错误
func Validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

// NotFound 验证码、考试或人员不存在
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

// Conflict 重复签到、验证码过期、不在可验证时段
func Conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

// Wrapf 以已有业务错误为分类派生带动态文案的错误，errors.Is 对 kind 及其分类均成立
func Wrapf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message 提取业务错误文案；非业务错误返回空串
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
