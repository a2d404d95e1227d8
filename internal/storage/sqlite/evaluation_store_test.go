package sqlite

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/udi-dataset/internal/evaluator"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
	"github.com/banshee-data/udi-dataset/internal/report"
	"github.com/banshee-data/udi-dataset/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleReport(t *testing.T) *report.Report {
	t.Helper()
	m, err := evaluator.DecodeMetrics([]byte(`{
  "label_aps": {"car": {"0.5": 0.8, "1.0": 0.9}, "truck": {"0.5": 0.1}},
  "label_tp_errors": {"car": {"trans_err": 0.2}, "truck": {"attr_err": NaN}}
}`))
	require.NoError(t, err)
	r, err := report.Assemble("v0.1-train", m, []string{"car", "truck"})
	require.NoError(t, err)
	return r
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion(mustSub(t))
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// reopening an up-to-date database is a no-op
	path := filepath.Join(t.TempDir(), "again.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestNewEvaluation_FlattensReport(t *testing.T) {
	e := NewEvaluation("train", sampleReport(t))

	assert.Equal(t, "v0.1-train", e.DatasetVersion)
	assert.Equal(t, "train", e.EvalSet)
	keys := make([]string, len(e.Metrics))
	for i, m := range e.Metrics {
		keys[i] = m.ClassName + "/" + m.MetricKey
	}
	assert.Equal(t, []string{"car/dist@0.5", "car/dist@1.0", "car/trans_err", "truck/dist@0.5", "truck/attr_err"}, keys)
	assert.Equal(t, 0.9, e.Detail()["car"]["dist@1.0"])
}

func TestEvaluationStore_InsertGet(t *testing.T) {
	store := NewEvaluationStore(setupTestDB(t).DB)
	e := NewEvaluation("train", sampleReport(t))

	require.NoError(t, store.Insert(e))
	require.NotEmpty(t, e.EvaluationID)
	assert.NotZero(t, e.CreatedAt)

	got, err := store.Get(e.EvaluationID)
	require.NoError(t, err)

	// NaN round-trips through NULL
	opt := cmpopts.EquateNaNs()
	if diff := cmp.Diff(e, got, opt); diff != "" {
		t.Errorf("evaluation mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, math.IsNaN(got.Detail()["truck"]["attr_err"]))
}

func TestEvaluationStore_ListNewestFirst(t *testing.T) {
	store := NewEvaluationStore(setupTestDB(t).DB)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(&Evaluation{
			EvaluationID:   id,
			DatasetVersion: "v0.1-train",
			EvalSet:        "train",
			Summary:        "s",
			CreatedAt:      int64(100 + i),
		}))
	}

	all, err := store.List(0)
	require.NoError(t, err)
	ids := []string{}
	for _, e := range all {
		ids = append(ids, e.EvaluationID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestEvaluationStore_Delete(t *testing.T) {
	db := setupTestDB(t)
	store := NewEvaluationStore(db.DB)
	e := NewEvaluation("train", sampleReport(t))
	require.NoError(t, store.Insert(e))

	require.NoError(t, store.Delete(e.EvaluationID))

	_, err := store.Get(e.EvaluationID)
	assert.True(t, errors.Is(err, ErrNotFound))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM udi_evaluation_metrics`).Scan(&n))
	assert.Zero(t, n)

	err = store.Delete(e.EvaluationID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEvaluationStore_DuplicateID(t *testing.T) {
	store := NewEvaluationStore(setupTestDB(t).DB)
	e := &Evaluation{EvaluationID: "dup", DatasetVersion: "v", EvalSet: "s", Summary: "x"}
	require.NoError(t, store.Insert(e))
	assert.Error(t, store.Insert(&Evaluation{EvaluationID: "dup", DatasetVersion: "v", EvalSet: "s", Summary: "y"}))
}

func TestEvaluationStore_ClockStampsCreatedAt(t *testing.T) {
	store := NewEvaluationStore(setupTestDB(t).DB)
	clock := timeutil.NewMockClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	store.SetClock(clock)

	first := &Evaluation{DatasetVersion: "v0.1-train", EvalSet: "train", Summary: "first"}
	require.NoError(t, store.Insert(first))
	clock.Advance(time.Hour)
	second := &Evaluation{DatasetVersion: "v0.1-train", EvalSet: "train", Summary: "second"}
	require.NoError(t, store.Insert(second))

	assert.Equal(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC).UnixNano(), first.CreatedAt)
	assert.NotEqual(t, first.EvaluationID, second.EvaluationID)

	evals, err := store.List(1)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, "second", evals[0].Summary)
}
