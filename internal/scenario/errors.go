package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 시나리오 입력 검증 실패
	ErrInvalidInput = errors.New("invalid scenario input")

	// ErrPresetNotFound 존재하지 않는 프리셋
	ErrPresetNotFound = errors.New("preset not found")
)

// ValidationError 필드 단위 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput
func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}
