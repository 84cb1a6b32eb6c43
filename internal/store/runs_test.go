package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/redev/backend/internal/scenario"
	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/database"
)

func TestNewRun(t *testing.T) {
	in := scenario.DefaultInput()
	res := scenario.CalcKPIs(in)

	a, err := NewRun(KindKPIs, "base", in, res)
	require.NoError(t, err)
	b, err := NewRun(KindKPIs, "base", in, res)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.InputHash, b.InputHash)
	assert.Len(t, a.InputHash, 64)
	assert.Contains(t, string(a.Input), `"households":1000`)
	assert.Contains(t, string(a.Result), `"payback_years":4`)

	c, err := NewRun(KindTornado, "base", in, res)
	require.NoError(t, err)
	assert.NotEqual(t, a.InputHash, c.InputHash)
}

func TestNewRun_MarshalError(t *testing.T) {
	_, err := NewRun(KindKPIs, "", make(chan int), nil)
	assert.Error(t, err)
}

// 통합 테스트: DATABASE_URL이 있을 때만 실행
func TestRepository_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	repo := NewRepository(db.Pool)
	run, err := NewRun(KindKPIs, "base", scenario.DefaultInput(), scenario.CalcKPIs(scenario.DefaultInput()))
	require.NoError(t, err)
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Kind, got.Kind)
	assert.Equal(t, run.InputHash, got.InputHash)
	assert.JSONEq(t, string(run.Result), string(got.Result))

	runs, err := repo.ListRuns(ctx, KindKPIs, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)

	_, err = repo.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
