package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		res := &model.AnswerResult{
			Question:     "how many orders?",
			FinalSQL:     "SELECT count(*) FROM marts.fct_orders",
			Narrative:    "There are 12 orders.",
			AttemptsUsed: 2,
			Succeeded:    true,
			Duration:     1500 * time.Millisecond,
		}
		run := model.NewRun("", res.Question, "groq", res, nil)
		require.NoError(t, s.SaveRun(ctx, &run))
		assert.NotEmpty(t, run.ID)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusAnswered, got.Status)
		assert.Equal(t, "groq", got.Provider)
		assert.Equal(t, res.FinalSQL, got.FinalSQL)
		assert.Equal(t, res.Narrative, got.Narrative)
		assert.Equal(t, 2, got.AttemptsUsed)
		assert.Equal(t, int64(1500), got.DurationMs)
		assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListRunsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		for i, status := range []model.RunStatus{model.RunStatusAnswered, model.RunStatusExhausted, model.RunStatusFailed} {
			r := model.Run{
				Question:  string(status),
				Status:    status,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, s.SaveRun(ctx, &r))
		}

		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "failed", runs[0].Question)
		assert.Equal(t, "answered", runs[2].Question)

		runs, err = s.ListRuns(ctx, RunFilter{Status: model.RunStatusExhausted})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, model.RunStatusExhausted, runs[0].Status)

		runs, err = s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "exhausted", runs[0].Question)
	})

	t.Run("ListRunsEmpty", func(t *testing.T) {
		s := newStore(t)
		runs, err := s.ListRuns(context.Background(), RunFilter{})
		require.NoError(t, err)
		assert.Empty(t, runs)
		assert.NotNil(t, runs)
	})

	t.Run("DeleteBefore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		old := model.Run{Question: "old", Status: model.RunStatusAnswered, CreatedAt: time.Now().Add(-48 * time.Hour)}
		recent := model.Run{Question: "new", Status: model.RunStatusAnswered}
		require.NoError(t, s.SaveRun(ctx, &old))
		require.NoError(t, s.SaveRun(ctx, &recent))

		n, err := s.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "new", runs[0].Question)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, s)

	s, err = Open(ctx, config.StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, s)

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo"})
	assert.ErrorContains(t, err, `unsupported driver "mongo"`)

	s, err = Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	r := model.Run{Question: "q", Status: model.RunStatusAnswered}
	require.NoError(t, s.SaveRun(ctx, &r), "Open migrates")

	_, err = Open(ctx, config.StoreConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "database path is required")
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var s Store = Nop{}

	assert.NoError(t, s.SaveRun(ctx, &model.Run{}))
	assert.NoError(t, s.Migrate(ctx))
	assert.NoError(t, s.Close())

	_, err := s.ListRuns(ctx, RunFilter{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.GetRun(ctx, "x")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.DeleteBefore(ctx, time.Now())
	assert.ErrorIs(t, err, ErrDisabled)
}
