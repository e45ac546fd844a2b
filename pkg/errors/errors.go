// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证授权错误 (2xxx)
	CodeTokenExpired     ErrorCode = "2001"
	CodeTokenInvalid     ErrorCode = "2002"
	CodeTokenMissing     ErrorCode = "2003"
	CodePermissionDenied ErrorCode = "2004"
	CodeEmailNotVerified ErrorCode = "2005"
	CodeInvalidCode      ErrorCode = "2006"
	CodeCodeExpired      ErrorCode = "2007"
	CodeEmailRegistered  ErrorCode = "2008"
	CodeBadCredentials   ErrorCode = "2009"
	CodeCannotDeleteSelf ErrorCode = "2010"

	// 资源错误 (3xxx)
	CodeBookNotFound ErrorCode = "3001"
	CodeUserNotFound ErrorCode = "3002"

	// 生成流程错误 (4xxx)
	CodeIllegalTransition     ErrorCode = "4001"
	CodeChapterOutOfOrder     ErrorCode = "4002"
	CodeIncompleteRequirement ErrorCode = "4003"
	CodeInvalidOutline        ErrorCode = "4004"
	CodeIncompleteChapter     ErrorCode = "4005"

	// 外部服务错误 (5xxx)
	CodeDatabaseError  ErrorCode = "5001"
	CodeCacheError     ErrorCode = "5002"
	CodeMessagingError ErrorCode = "5003"
	CodeEmailError     ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Detail != "" && e.Err == nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, ErrIllegalTransition) 对带详情的副本同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
// 预定义错误是包级共享值，不能原地修改
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithDetailf 格式化详细信息
func (e *AppError) WithDetailf(format string, args ...any) *AppError {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeEmailNotVerified, CodeInvalidCode, CodeCodeExpired,
		CodeEmailRegistered, CodeBadCredentials, CodeCannotDeleteSelf:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid, CodeTokenMissing:
		return http.StatusUnauthorized
	case CodeForbidden, CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeBookNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIllegalTransition, CodeChapterOutOfOrder:
		return http.StatusConflict
	case CodeIncompleteRequirement, CodeInvalidOutline, CodeIncompleteChapter:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrTokenExpired     = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid     = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing     = New(CodeTokenMissing, "token missing")
	ErrEmailNotVerified = New(CodeEmailNotVerified, "email not verified")
	ErrInvalidCode      = New(CodeInvalidCode, "invalid verification code")
	ErrCodeExpired      = New(CodeCodeExpired, "verification code expired")
	ErrEmailRegistered  = New(CodeEmailRegistered, "email already registered")
	ErrBadCredentials   = New(CodeBadCredentials, "incorrect email or password")
	ErrCannotDeleteSelf = New(CodeCannotDeleteSelf, "cannot delete own admin account")

	ErrBookNotFound = New(CodeBookNotFound, "book not found")
	ErrUserNotFound = New(CodeUserNotFound, "user not found")

	ErrIllegalTransition     = New(CodeIllegalTransition, "illegal generation transition")
	ErrChapterOutOfOrder     = New(CodeChapterOutOfOrder, "chapter out of order")
	ErrIncompleteRequirement = New(CodeIncompleteRequirement, "incomplete book requirement")
	ErrInvalidOutline        = New(CodeInvalidOutline, "invalid chapter outline")
	ErrIncompleteChapter     = New(CodeIncompleteChapter, "incomplete chapter content")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// IsGenerationRejection 判断是否为生成状态机的本地校验失败（重试无法修复）
func IsGenerationRejection(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeIllegalTransition, CodeChapterOutOfOrder, CodeIncompleteRequirement, CodeInvalidOutline, CodeIncompleteChapter:
		return true
	default:
		return false
	}
}
