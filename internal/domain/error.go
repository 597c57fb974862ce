package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrInvalidScenario     ErrorKind = "InvalidScenario"
	ErrUnknownDisaster     ErrorKind = "UnknownDisaster"
	ErrCatalogLoad         ErrorKind = "CatalogLoad"
	ErrParameterOutOfRange ErrorKind = "ParameterOutOfRange"
	ErrEngineFailure       ErrorKind = "EngineFailure"
)

// Error 是优化引擎对外报告的错误，调用方根据 Kind 翻译成 HTTP 状态码或退出码
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Generation *int      `json:"generation,omitempty"` // 仅 EngineFailure 使用
	Err        error     `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Generation != nil {
		msg = fmt.Sprintf("%s (第 %d 代)", msg, *e.Generation)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func EngineFailure(generation int, err error) *Error {
	return &Error{
		Kind:       ErrEngineFailure,
		Message:    "优化引擎内部错误",
		Generation: &generation,
		Err:        err,
	}
}

// KindOf 返回错误链中第一个 *Error 的 Kind，不是引擎错误时返回空字符串
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsInputError 表示错误是否由调用方的输入引起
func IsInputError(err error) bool {
	switch KindOf(err) {
	case ErrInvalidScenario, ErrUnknownDisaster, ErrParameterOutOfRange:
		return true
	default:
		return false
	}
}
