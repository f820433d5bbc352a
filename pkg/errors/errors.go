package errors

import (
	"errors"
	"fmt"

	"tradeflow/pkg/ecode"
)

// 带业务错误码的error，供response层解码
type CodedError struct {
	Code    int
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d message=%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code=%d message=%s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error { return e.Err }

// New 创建一个带错误码的error
func New(code int, message string) error {
	if message == "" {
		message = ecode.Message(code)
	}
	return &CodedError{Code: code, Message: message}
}

// Wrap 包装底层错误并附加错误码
func Wrap(err error, code int, message string) error {
	if message == "" {
		message = ecode.Message(code)
	}
	return &CodedError{Code: code, Message: message, Err: err}
}

// DecodeErr 解码error为(错误码, 提示信息)，nil表示成功
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Message(ecode.Success)
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, coded.Message
	}
	return ecode.InternalErr, err.Error()
}

// Code 获取错误的业务码，无码错误归为InternalErr
func Code(err error) int {
	code, _ := DecodeErr(err)
	return code
}

// Is 转发标准库判断，调用方不必同时导入两个errors包
func Is(err, target error) bool { return errors.Is(err, target) }
