package validation

import (
	"github.com/go-playground/validator/v10"
)

// EchoValidator echo.Validator 의 go-playground/validator 구현체입니다.
type EchoValidator struct {
	validate *validator.Validate
}

func NewEchoValidator() *EchoValidator {
	return &EchoValidator{validate: validator.New()}
}

// Validate 구조체 태그 규칙으로 요청 본문을 검증합니다.
func (v *EchoValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
