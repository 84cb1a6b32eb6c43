package trend

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidInput 잘못된 입력
var ErrInvalidInput = errors.New("invalid input")

// MaxDegree 추세 다항식 최대 차수
const MaxDegree = 3

// DegreeFor 서로 다른 시간대 수에 따른 차수
// min(3, max(1, n-1)), 관측 시간대가 1개면 상수(0차)
func DegreeFor(distinctHours int) int {
	if distinctHours <= 1 {
		return 0
	}
	deg := distinctHours - 1
	if deg < 1 {
		deg = 1
	}
	if deg > MaxDegree {
		deg = MaxDegree
	}
	return deg
}

// PolyFit 최소제곱 다항식 적합 (QR)
// 반환: 오름차순 계수 [c0, c1, ..., c_deg]
func PolyFit(x, y []float64, degree int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: len(x)=%d len(y)=%d", ErrInvalidInput, len(x), len(y))
	}
	if degree < 0 || len(x) < degree+1 {
		return nil, fmt.Errorf("%w: %d points for degree %d", ErrInvalidInput, len(x), degree)
	}

	n := len(x)
	a := mat.NewDense(n, degree+1, nil)
	for i, xi := range x {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= xi
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("least squares: %w", err)
		}
		// ill-conditioned 경고는 결과를 그대로 사용
	}

	coeffs := make([]float64, degree+1)
	for i := range coeffs {
		coeffs[i] = c.AtVec(i)
	}
	return coeffs, nil
}

// PolyEval 오름차순 계수 다항식 값 (Horner)
func PolyEval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}
