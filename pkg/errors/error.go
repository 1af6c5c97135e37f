package errors

import (
	"errors"
	"fmt"
)

// 표준 라이브러리 함수 재노출
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error 코드를 가진 에러 인터페이스
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError 애플리케이션 에러 구현체
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string { return e.code }

// Message 원인을 제외한, 클라이언트에 노출 가능한 메시지
func (e *AppError) Message() string { return e.message }

func (e *AppError) Unwrap() error { return e.err }

// NewAppError 새 애플리케이션 에러를 생성합니다.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Wrap 기존 에러를 래핑합니다. AppError 인 경우 코드를 유지합니다.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}
	return NewAppError(ErrInternal, message, err)
}

// CodeOf 에러 체인에서 AppError 코드를 찾습니다. 없으면 ErrInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}
