package projects

import "github.com/wonny/redev/backend/internal/traffic"

// DefaultCenter 자치구를 알 수 없을 때 사용하는 서울 중심 좌표
var DefaultCenter = traffic.Coord{Lat: 37.55, Lon: 127.0}

// Districts 서울시 25개 자치구 (가나다순)
var Districts = []string{
	"강남구", "강동구", "강북구", "강서구", "관악구", "광진구", "구로구", "금천구",
	"노원구", "도봉구", "동대문구", "동작구", "마포구", "서대문구", "서초구", "성동구",
	"성북구", "송파구", "양천구", "영등포구", "용산구", "은평구", "종로구", "중구", "중랑구",
}

// ⭐ SSOT: 자치구 중심 좌표
var guCenters = map[string]traffic.Coord{
	"강남구":  {Lat: 37.5172, Lon: 127.0473},
	"강동구":  {Lat: 37.5301, Lon: 127.1238},
	"강북구":  {Lat: 37.6396, Lon: 127.0257},
	"강서구":  {Lat: 37.5509, Lon: 126.8495},
	"관악구":  {Lat: 37.4784, Lon: 126.9516},
	"광진구":  {Lat: 37.5386, Lon: 127.0822},
	"구로구":  {Lat: 37.4955, Lon: 126.8876},
	"금천구":  {Lat: 37.4569, Lon: 126.8958},
	"노원구":  {Lat: 37.6543, Lon: 127.0565},
	"도봉구":  {Lat: 37.6688, Lon: 127.0471},
	"동대문구": {Lat: 37.5740, Lon: 127.0396},
	"동작구":  {Lat: 37.5124, Lon: 126.9393},
	"마포구":  {Lat: 37.5638, Lon: 126.9084},
	"서대문구": {Lat: 37.5791, Lon: 126.9368},
	"서초구":  {Lat: 37.4836, Lon: 127.0326},
	"성동구":  {Lat: 37.5633, Lon: 127.0369},
	"성북구":  {Lat: 37.5894, Lon: 127.0167},
	"송파구":  {Lat: 37.5145, Lon: 127.1068},
	"양천구":  {Lat: 37.5169, Lon: 126.8665},
	"영등포구": {Lat: 37.5264, Lon: 126.8963},
	"용산구":  {Lat: 37.5311, Lon: 126.9811},
	"은평구":  {Lat: 37.6176, Lon: 126.9227},
	"종로구":  {Lat: 37.5736, Lon: 126.9780},
	"중구":   {Lat: 37.5636, Lon: 126.9976},
	"중랑구":  {Lat: 37.6063, Lon: 127.0929},
}

// GuCenter 자치구 중심 좌표. 모르는 자치구면 DefaultCenter, false
func GuCenter(gu string) (traffic.Coord, bool) {
	c, ok := guCenters[gu]
	if !ok {
		return DefaultCenter, false
	}
	return c, true
}

// IsDistrict 서울시 자치구 이름인지 확인
func IsDistrict(gu string) bool {
	_, ok := guCenters[gu]
	return ok
}
