package errors

import (
	"go.uber.org/zap"
)

// LogError 에러를 구조화된 로그로 기록합니다.
// 5xx 로 매핑되는 코드는 Error, 그 외는 Warn 레벨입니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	code := CodeOf(err)
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.Error(err), zap.String("error_code", code))
	all = append(all, fields...)

	if ToHTTPStatus(code) >= 500 {
		logger.Error(msg, all...)
		return
	}
	logger.Warn(msg, all...)
}
