package logger

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	apperrors "github.com/Peluchemoreno/esti-mate-billing/pkg/errors"
)

// maskedHeaders 값 일부만 남기고 기록하는 헤더
var maskedHeaders = map[string]bool{
	"Authorization":    true,
	"Stripe-Signature": true,
}

// NewEchoRequestLogger zap 으로 HTTP 요청/응답을 기록하는 미들웨어를 생성합니다.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		HandleError:  true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogRequestID: true,
		LogUserAgent: true,
		LogStatus:    true,
		LogError:     true,
		LogHeaders:   []string{"Content-Type", "Authorization", "Stripe-Signature", "X-Idempotency-Key"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
			}

			if len(v.Headers) > 0 {
				headers := make(map[string]string, len(v.Headers))
				for k, values := range v.Headers {
					if len(values) == 0 {
						continue
					}
					headers[k] = maskHeader(k, values[0])
				}
				fields = append(fields, zap.Any("request.headers", headers))
			}

			switch {
			case v.Error != nil:
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= 500:
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

func maskHeader(name, value string) string {
	if !maskedHeaders[name] {
		return value
	}
	if len(value) > 15 {
		return value[:10] + "..." + value[len(value)-5:]
	}
	return "[MASKED]"
}

// WithEchoLogger Echo 의 Logger 와 에러 핸들러를 zap 기반으로 교체합니다.
// AppError 는 코드 매핑 테이블에 따라 상태 코드가 결정됩니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		he := apperrors.ToHTTPError(err)
		body := map[string]interface{}{"error": he.Message}

		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) {
			body["code"] = appErr.Code()
		}
		if he.Code >= http.StatusInternalServerError {
			// 내부 원인은 응답에 노출하지 않습니다.
			body["error"] = http.StatusText(he.Code)
			apperrors.LogError(logger, err, "HTTP error",
				zap.Int("status", he.Code),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger echo.Logger 인터페이스의 zap 구현체입니다.
type EchoZapLogger struct {
	Logger *zap.Logger
}

// NewEchoZapLogger echo.Logger 를 구현한 zap 래퍼를 생성합니다.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger}
}

func (l *EchoZapLogger) sugar() *zap.SugaredLogger { return l.Logger.Sugar() }

func (l *EchoZapLogger) Output() io.Writer       { return &zapWriter{logger: l.Logger} }
func (l *EchoZapLogger) SetOutput(io.Writer)     {}
func (l *EchoZapLogger) Level() log.Lvl          { return log.INFO }
func (l *EchoZapLogger) SetLevel(log.Lvl)        {}
func (l *EchoZapLogger) SetHeader(string)        {}
func (l *EchoZapLogger) Prefix() string          { return "" }
func (l *EchoZapLogger) SetPrefix(string)        {}
func (l *EchoZapLogger) Print(i ...interface{})  { l.sugar().Info(i...) }
func (l *EchoZapLogger) Debug(i ...interface{})  { l.sugar().Debug(i...) }
func (l *EchoZapLogger) Info(i ...interface{})   { l.sugar().Info(i...) }
func (l *EchoZapLogger) Warn(i ...interface{})   { l.sugar().Warn(i...) }
func (l *EchoZapLogger) Error(i ...interface{})  { l.sugar().Error(i...) }
func (l *EchoZapLogger) Fatal(i ...interface{})  { l.sugar().Fatal(i...) }
func (l *EchoZapLogger) Panic(i ...interface{})  { l.sugar().Panic(i...) }
func (l *EchoZapLogger) Printj(j log.JSON)       { l.Logger.Info("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Debugj(j log.JSON)       { l.Logger.Debug("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Infoj(j log.JSON)        { l.Logger.Info("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Warnj(j log.JSON)        { l.Logger.Warn("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Errorj(j log.JSON)       { l.Logger.Error("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Fatalj(j log.JSON)       { l.Logger.Fatal("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Panicj(j log.JSON)       { l.Logger.Panic("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Printf(f string, i ...interface{}) { l.sugar().Infof(f, i...) }
func (l *EchoZapLogger) Debugf(f string, i ...interface{}) { l.sugar().Debugf(f, i...) }
func (l *EchoZapLogger) Infof(f string, i ...interface{})  { l.sugar().Infof(f, i...) }
func (l *EchoZapLogger) Warnf(f string, i ...interface{})  { l.sugar().Warnf(f, i...) }
func (l *EchoZapLogger) Errorf(f string, i ...interface{}) { l.sugar().Errorf(f, i...) }
func (l *EchoZapLogger) Fatalf(f string, i ...interface{}) { l.sugar().Fatalf(f, i...) }
func (l *EchoZapLogger) Panicf(f string, i ...interface{}) { l.sugar().Panicf(f, i...) }

// zapWriter io.Writer 를 zap Info 로그로 연결합니다.
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(p))
	return len(p), nil
}
