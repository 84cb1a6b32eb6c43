package scenario

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Input 사업성 계산 입력
// 금액 단위: 분양가·공사비 만원/㎡, 인프라 억원
type Input struct {
	Households         int     `json:"households" yaml:"households" validate:"gt=0"`
	AvgUnitSizePy      float64 `json:"avg_unit_size_py" yaml:"avg_unit_size_py" validate:"gt=0"`
	SalePricePerM2     float64 `json:"sale_price_per_m2" yaml:"sale_price_per_m2" validate:"gt=0"`
	BuildCostPerM2     float64 `json:"build_cost_per_m2" yaml:"build_cost_per_m2" validate:"gt=0"`
	InfraInvestBillion float64 `json:"infra_invest_billion" yaml:"infra_invest_billion" validate:"gte=0"`
	CongestionBase     float64 `json:"congestion_base" yaml:"congestion_base" validate:"gte=0,lte=100"`
	BusIncreasePct     float64 `json:"bus_increase_pct" yaml:"bus_increase_pct" validate:"gte=0,lte=100"`
	NonSaleRatio       float64 `json:"non_sale_ratio" yaml:"non_sale_ratio" validate:"gte=0,lte=0.4"`
	SaleRate           float64 `json:"sale_rate" yaml:"sale_rate" validate:"gte=0.8,lte=1"`
	DiscountRate       float64 `json:"discount_rate" yaml:"discount_rate" validate:"gte=0.03,lte=0.15"`
	Years              int     `json:"years" yaml:"years" validate:"gte=0"`
}

// DefaultInput 기본 입력 (1000세대, 25평, 분양가 1200, 공사비 900)
func DefaultInput() Input {
	return Input{
		Households:         1000,
		AvgUnitSizePy:      25,
		SalePricePerM2:     1200,
		BuildCostPerM2:     900,
		InfraInvestBillion: 30,
		CongestionBase:     50,
		BusIncreasePct:     15,
		NonSaleRatio:       0.15,
		SaleRate:           0.98,
		DiscountRate:       0.07,
		Years:              4,
	}
}

// Common 시나리오 간 공유 입력
type Common struct {
	Households     int     `json:"households" yaml:"households"`
	AvgUnitSizePy  float64 `json:"avg_unit_size_py" yaml:"avg_unit_size_py"`
	CongestionBase float64 `json:"congestion_base" yaml:"congestion_base"`
	NonSaleRatio   float64 `json:"non_sale_ratio" yaml:"non_sale_ratio"`
	SaleRate       float64 `json:"sale_rate" yaml:"sale_rate"`
	DiscountRate   float64 `json:"discount_rate" yaml:"discount_rate"`
	Years          int     `json:"years" yaml:"years"`
}

// Variant 시나리오별로 달라지는 입력 (분양가 / 공사비 / 버스증편 / 인프라)
type Variant struct {
	Name               string  `json:"name" yaml:"name"`
	SalePricePerM2     float64 `json:"sale_price_per_m2" yaml:"sale_price_per_m2"`
	BuildCostPerM2     float64 `json:"build_cost_per_m2" yaml:"build_cost_per_m2"`
	BusIncreasePct     float64 `json:"bus_increase_pct" yaml:"bus_increase_pct"`
	InfraInvestBillion float64 `json:"infra_invest_billion" yaml:"infra_invest_billion"`
}

// With 공통 입력 + 시나리오 → 계산 입력
func (c Common) With(v Variant) Input {
	return Input{
		Households:         c.Households,
		AvgUnitSizePy:      c.AvgUnitSizePy,
		SalePricePerM2:     v.SalePricePerM2,
		BuildCostPerM2:     v.BuildCostPerM2,
		InfraInvestBillion: v.InfraInvestBillion,
		CongestionBase:     c.CongestionBase,
		BusIncreasePct:     v.BusIncreasePct,
		NonSaleRatio:       c.NonSaleRatio,
		SaleRate:           c.SaleRate,
		DiscountRate:       c.DiscountRate,
		Years:              c.Years,
	}
}

// Split 계산 입력 → 공통 입력 + 시나리오
func (in Input) Split(name string) (Common, Variant) {
	common := Common{
		Households:     in.Households,
		AvgUnitSizePy:  in.AvgUnitSizePy,
		CongestionBase: in.CongestionBase,
		NonSaleRatio:   in.NonSaleRatio,
		SaleRate:       in.SaleRate,
		DiscountRate:   in.DiscountRate,
		Years:          in.Years,
	}
	variant := Variant{
		Name:               name,
		SalePricePerM2:     in.SalePricePerM2,
		BuildCostPerM2:     in.BuildCostPerM2,
		BusIncreasePct:     in.BusIncreasePct,
		InfraInvestBillion: in.InfraInvestBillion,
	}
	return common, variant
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate 입력 범위 검증. 첫 번째 위반을 ValidationError로 반환
func (in Input) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be > " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	}
	return fmt.Sprintf("failed %q", fe.Tag())
}
