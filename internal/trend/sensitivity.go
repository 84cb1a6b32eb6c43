package trend

// DefaultSensitivity 민감도 테이블에 없는 자치구의 η
const DefaultSensitivity = 0.6

// sensitivity 자치구별 민감도 η (0.50 ~ 0.75)
// 도심·업무지구 통행 집중도가 높을수록 세대 증가에 민감
var sensitivity = map[string]float64{
	"강남구":  0.75,
	"서초구":  0.72,
	"송파구":  0.70,
	"영등포구": 0.68,
	"용산구":  0.68,
	"중구":   0.66,
	"종로구":  0.66,
	"마포구":  0.65,
	"성동구":  0.64,
	"강동구":  0.62,
	"광진구":  0.62,
	"동작구":  0.60,
	"양천구":  0.60,
	"강서구":  0.58,
	"동대문구": 0.58,
	"서대문구": 0.57,
	"성북구":  0.56,
	"관악구":  0.56,
	"구로구":  0.55,
	"금천구":  0.54,
	"노원구":  0.53,
	"은평구":  0.53,
	"중랑구":  0.52,
	"강북구":  0.50,
	"도봉구":  0.50,
}

// Sensitivity 자치구 η (없으면 DefaultSensitivity)
func Sensitivity(gu string) float64 {
	if eta, ok := sensitivity[gu]; ok {
		return eta
	}
	return DefaultSensitivity
}

// SensitivityTable returns a copy of the district table
func SensitivityTable() map[string]float64 {
	out := make(map[string]float64, len(sensitivity))
	for k, v := range sensitivity {
		out[k] = v
	}
	return out
}
