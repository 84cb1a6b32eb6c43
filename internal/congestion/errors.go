package congestion

import "errors"

// ErrInvalidInput 잘못된 파라미터
var ErrInvalidInput = errors.New("invalid input")
