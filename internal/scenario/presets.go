package scenario

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresetsYAML []byte

// Preset 공통 입력 + 비교 시나리오 묶음
type Preset struct {
	Name               string    `json:"name" yaml:"name"`
	Label              string    `json:"label" yaml:"label"`
	Common             Common    `json:"common" yaml:"common"`
	BaseBusIncreasePct float64   `json:"base_bus_increase_pct" yaml:"base_bus_increase_pct"`
	Variants           []Variant `json:"variants" yaml:"variants"`
}

// PresetSet 프리셋 목록 (YAML 순서 유지)
type PresetSet struct {
	Presets []Preset `json:"presets" yaml:"presets"`
}

// BaseVariant 민감도/Monte Carlo 기준 시나리오
// 첫 번째 시나리오의 가격 조건 + 프리셋 기본 버스 증편율
func (p Preset) BaseVariant() Variant {
	if len(p.Variants) == 0 {
		return Variant{Name: "base", BusIncreasePct: p.BaseBusIncreasePct}
	}
	v := p.Variants[0]
	v.Name = "base"
	v.BusIncreasePct = p.BaseBusIncreasePct
	return v
}

// BaseInput 기준 시나리오의 계산 입력
func (p Preset) BaseInput() Input {
	return p.Common.With(p.BaseVariant())
}

// Get 이름으로 프리셋 조회
func (s *PresetSet) Get(name string) (Preset, error) {
	for _, p := range s.Presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
}

// Names 프리셋 이름 목록
func (s *PresetSet) Names() []string {
	names := make([]string, len(s.Presets))
	for i, p := range s.Presets {
		names[i] = p.Name
	}
	return names
}

// DefaultPresets 내장 프리셋 (보수적 / 기준 / 공격적)
func DefaultPresets() (*PresetSet, error) {
	return ParsePresets(defaultPresetsYAML)
}

// LoadPresets YAML 파일에서 프리셋 로드. 빈 경로면 내장 프리셋
func LoadPresets(path string) (*PresetSet, error) {
	if path == "" {
		return DefaultPresets()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets YAML 파싱 + 검증
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func ParsePresets(data []byte) (*PresetSet, error) {
	var set PresetSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate 프리셋 구조와 모든 시나리오 입력 범위 검증
func (s *PresetSet) Validate() error {
	if len(s.Presets) == 0 {
		return ValidationError{Field: "presets", Message: "at least one preset required"}
	}

	seen := make(map[string]struct{}, len(s.Presets))
	for i, p := range s.Presets {
		prefix := fmt.Sprintf("presets[%d]", i)

		if p.Name == "" {
			return ValidationError{Field: prefix + ".name", Message: "required"}
		}
		if _, dup := seen[p.Name]; dup {
			return ValidationError{Field: prefix + ".name", Message: "duplicate " + p.Name}
		}
		seen[p.Name] = struct{}{}

		if len(p.Variants) == 0 {
			return ValidationError{Field: prefix + ".variants", Message: "at least one variant required"}
		}

		if err := checkInput(prefix+".base", p.BaseInput()); err != nil {
			return err
		}
		for j, v := range p.Variants {
			if v.Name == "" {
				return ValidationError{Field: fmt.Sprintf("%s.variants[%d].name", prefix, j), Message: "required"}
			}
			if err := checkInput(fmt.Sprintf("%s.variants[%d]", prefix, j), p.Common.With(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkInput(prefix string, in Input) error {
	err := in.Validate()
	if err == nil {
		return nil
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		ve.Field = prefix + "." + ve.Field
		return ve
	}
	return err
}

// Hash 프리셋 집합 식별자 (canonical JSON의 SHA256)
// map 대신 struct 사용으로 해시 재현성 보장
func (s *PresetSet) Hash() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
