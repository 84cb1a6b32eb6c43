package scenario

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Row 시나리오 하나의 입력과 KPI
type Row struct {
	Variant Variant `json:"variant"`
	Input   Input   `json:"input"`
	Result  Result  `json:"result"`
}

// Comparison 시나리오 비교 결과
type Comparison struct {
	Common Common `json:"common"`
	Rows   []Row  `json:"rows"`
	Best   string `json:"best"` // NPV 최대 시나리오 이름
}

// Compare 공통 입력을 공유하는 시나리오(A/B/C...)를 동시에 계산
// 행 순서는 variants 순서 유지, NPV 동률이면 앞선 시나리오가 Best
func Compare(ctx context.Context, common Common, variants []Variant) (Comparison, error) {
	if len(variants) == 0 {
		return Comparison{}, fmt.Errorf("%w: no variants", ErrInvalidInput)
	}

	rows := make([]Row, len(variants))
	g, ctx := errgroup.WithContext(ctx)

	for i, v := range variants {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			in := common.With(v)
			if err := in.Validate(); err != nil {
				return fmt.Errorf("variant %s: %w", v.Name, err)
			}

			rows[i] = Row{Variant: v, Input: in, Result: CalcKPIs(in)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	best := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].Result.NPV100m > rows[best].Result.NPV100m {
			best = i
		}
	}

	return Comparison{
		Common: common,
		Rows:   rows,
		Best:   rows[best].Variant.Name,
	}, nil
}

// Row 이름으로 시나리오 행 조회
func (c Comparison) Row(name string) (Row, bool) {
	for _, r := range c.Rows {
		if r.Variant.Name == name {
			return r, true
		}
	}
	return Row{}, false
}
