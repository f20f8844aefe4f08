package apperrors

import (
	"errors"
	"fmt"
)

// 错误码
const (
	CodeUnknown          = 1000
	CodeNotConnected     = 1001
	CodeMalformedMessage = 1002
	CodeIdentityFrozen   = 2001
	CodeEmptyIdentity    = 2002
	CodeInvalidSession   = 2003
	CodeNoGame           = 3001
	CodeCardNotInHand    = 3002
)

// ClientError 客户端错误
type ClientError struct {
	Code    int
	Message string
}

func (e *ClientError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrNotConnected     = &ClientError{Code: CodeNotConnected, Message: "socket not connected"}
	ErrMalformedMessage = &ClientError{Code: CodeMalformedMessage, Message: "malformed server message"}
	ErrIdentityFrozen   = &ClientError{Code: CodeIdentityFrozen, Message: "identity cannot change while connected"}
	ErrEmptyIdentity    = &ClientError{Code: CodeEmptyIdentity, Message: "identity must not be empty"}
	ErrNoGame           = &ClientError{Code: CodeNoGame, Message: "no game in progress"}
	ErrCardNotInHand    = &ClientError{Code: CodeCardNotInHand, Message: "card not in hand"}
)

// SessionIDLength 合法会话 ID 的长度
const SessionIDLength = 5

// ValidationError 发送前的本地校验错误，不产生任何网络流量
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Code 校验错误统一映射到会话 ID 错误码
func (e *ValidationError) Code() int {
	return CodeInvalidSession
}

// ValidateSessionID 会话 ID 必须恰好 5 个字符
func ValidateSessionID(sessionID string) error {
	if len([]rune(sessionID)) != SessionIDLength {
		return &ValidationError{
			Field:  "session_id",
			Reason: fmt.Sprintf("SessionID needs to be %d characters", SessionIDLength),
		}
	}
	return nil
}

// IsValidation 是否为本地校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Wrap 为预定义错误附加上下文，errors.Is 仍可匹配
func Wrap(base *ClientError, err error) error {
	if err == nil {
		return base
	}
	return fmt.Errorf("%w: %w", base, err)
}
