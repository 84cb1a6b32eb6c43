package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound 존재하지 않는 실행 이력
var ErrNotFound = errors.New("scenario run not found")

// Run kinds
const (
	KindKPIs       = "kpis"
	KindCompare    = "compare"
	KindTornado    = "tornado"
	KindMonteCarlo = "montecarlo"
)

// DefaultListLimit ListRuns 기본 개수
const DefaultListLimit = 50

// Run 시나리오 실행 이력 한 건
type Run struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Preset    string          `json:"preset,omitempty"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result"`
	InputHash string          `json:"input_hash"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRun 입력/결과를 JSON으로 직렬화하고 입력 해시 계산
func NewRun(kind, preset string, input, result interface{}) (*Run, error) {
	in, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	sum := sha256.Sum256(append([]byte(kind+":"), in...))
	return &Run{
		ID:        uuid.New(),
		Kind:      kind,
		Preset:    preset,
		Input:     in,
		Result:    out,
		InputHash: hex.EncodeToString(sum[:]),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// RunStore 실행 이력 저장소
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, kind string, limit int) ([]Run, error)
}

// Repository handles scenario run persistence
// ⭐ SSOT: 시나리오 실행 이력 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new scenario run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun saves a run (같은 ID는 덮어씀)
func (r *Repository) SaveRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO redev.scenario_runs (
			id, kind, preset, input, result, input_hash, created_at
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			preset = EXCLUDED.preset,
			input = EXCLUDED.input,
			result = EXCLUDED.result,
			input_hash = EXCLUDED.input_hash
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.Kind, run.Preset, []byte(run.Input), []byte(run.Result),
		run.InputHash, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save scenario run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by id
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, kind, COALESCE(preset, ''), input, result, input_hash, created_at
		FROM redev.scenario_runs
		WHERE id = $1
	`

	var run Run
	var input, result []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Kind, &run.Preset, &input, &result, &run.InputHash, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario run: %w", err)
	}

	run.Input = input
	run.Result = result
	return &run, nil
}

// ListRuns returns the latest runs (kind 비어 있으면 전체)
func (r *Repository) ListRuns(ctx context.Context, kind string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, kind, COALESCE(preset, ''), input, result, input_hash, created_at
		FROM redev.scenario_runs
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenario runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var input, result []byte
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.Preset, &input, &result, &run.InputHash, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scenario run: %w", err)
		}
		run.Input = input
		run.Result = result
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenario runs: %w", err)
	}

	return runs, nil
}
