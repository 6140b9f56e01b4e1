package core

import (
	"errors"
	"fmt"
)

// ErrorKind 是中继错误分类，决定对外映射（客户端错误 / 服务端错误）以及是否落诊断记录
type ErrorKind string

const (
	ErrMalformedInstruction   ErrorKind = "MalformedInstruction"   // 结构错误：字段缺失、账户不足、数据过短
	ErrUnknownProgram         ErrorKind = "UnknownProgram"         // 程序不在允许集合内
	ErrUnknownOperation       ErrorKind = "UnknownOperation"       // 操作未知或不允许经中继执行
	ErrPolicyViolation        ErrorKind = "PolicyViolation"        // 违反程序策略（mint、配对、authority 等）
	ErrAuthenticationRequired ErrorKind = "AuthenticationRequired" // 需要已登录调用方
	ErrSocialProofRequired    ErrorKind = "SocialProofRequired"    // 缺少已验证的外部社交身份
	ErrPolicyLookupFailed     ErrorKind = "PolicyLookupFailed"     // 策略依赖的外部查询失败（拒绝放行）
	ErrSubmissionError        ErrorKind = "SubmissionError"        // 链上提交确定失败
	ErrSubmissionUnknown      ErrorKind = "SubmissionUnknown"      // 提交或确认超时，结果未知
	ErrSignerUnavailable      ErrorKind = "SignerUnavailable"      // 无可用 fee payer
)

// IsClientError 表示错误由请求输入导致
func (k ErrorKind) IsClientError() bool {
	switch k {
	case ErrMalformedInstruction, ErrUnknownProgram, ErrUnknownOperation,
		ErrPolicyViolation, ErrAuthenticationRequired, ErrSocialProofRequired:
		return true
	}
	return false
}

// RelayError 是中继流程中的结构化错误。Index 为 -1 表示与具体指令无关。
type RelayError struct {
	Kind    ErrorKind
	Index   int
	Message string
	Cause   error
}

func (e *RelayError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Index >= 0 {
		return fmt.Sprintf("%s: instruction %d: %s", e.Kind, e.Index, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

// WithIndex 返回带指令序号的副本，解码器不感知序号，由调用方补齐
func (e *RelayError) WithIndex(index int) *RelayError {
	c := *e
	c.Index = index
	return &c
}

func NewError(kind ErrorKind, format string, args ...interface{}) *RelayError {
	return &RelayError{Kind: kind, Index: -1, Message: fmt.Sprintf(format, args...)}
}

func NewInstructionError(kind ErrorKind, index int, format string, args ...interface{}) *RelayError {
	return &RelayError{Kind: kind, Index: index, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *RelayError {
	return &RelayError{Kind: kind, Index: -1, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// AsRelayError 从错误链中提取 RelayError
func AsRelayError(err error) (*RelayError, bool) {
	var re *RelayError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// KindOf 返回错误分类，非 RelayError 返回空串
func KindOf(err error) ErrorKind {
	if re, ok := AsRelayError(err); ok {
		return re.Kind
	}
	return ""
}
