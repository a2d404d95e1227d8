package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/udi-dataset/internal/report"
	"github.com/banshee-data/udi-dataset/internal/timeutil"
)

// ErrNotFound is returned when an evaluation id does not exist.
var ErrNotFound = errors.New("evaluation not found")

// Metric is one detail value of an evaluation.
type Metric struct {
	ClassName string  `json:"class_name"`
	MetricKey string  `json:"metric_key"`
	Value     float64 `json:"value"`
}

// Evaluation is a persisted evaluation run.
type Evaluation struct {
	EvaluationID   string   `json:"evaluation_id"`
	DatasetVersion string   `json:"dataset_version"`
	EvalSet        string   `json:"eval_set"`
	Summary        string   `json:"summary"`
	Metrics        []Metric `json:"metrics,omitempty"`
	CreatedAt      int64    `json:"created_at"`
}

// NewEvaluation flattens a report into an Evaluation, keeping the
// report's class and key order.
func NewEvaluation(evalSet string, rep *report.Report) *Evaluation {
	e := &Evaluation{
		DatasetVersion: rep.Version,
		EvalSet:        evalSet,
		Summary:        rep.Summary,
	}
	for _, class := range rep.Classes {
		for _, key := range rep.Keys[class] {
			e.Metrics = append(e.Metrics, Metric{ClassName: class, MetricKey: key, Value: rep.Detail[class][key]})
		}
	}
	return e
}

// Detail regroups the metrics as class -> key -> value.
func (e *Evaluation) Detail() map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, m := range e.Metrics {
		if out[m.ClassName] == nil {
			out[m.ClassName] = make(map[string]float64)
		}
		out[m.ClassName][m.MetricKey] = m.Value
	}
	return out
}

// EvaluationStore provides persistence for evaluation runs.
type EvaluationStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewEvaluationStore creates a new EvaluationStore.
func NewEvaluationStore(db *sql.DB) *EvaluationStore {
	return &EvaluationStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used for creation times and busy backoff.
func (s *EvaluationStore) SetClock(c timeutil.Clock) {
	if c != nil {
		s.clock = c
	}
}

// Insert persists an evaluation and its metrics. If EvaluationID is empty,
// a UUID is generated.
func (s *EvaluationStore) Insert(eval *Evaluation) error {
	if eval.EvaluationID == "" {
		eval.EvaluationID = uuid.New().String()
	}
	if eval.CreatedAt == 0 {
		eval.CreatedAt = s.clock.Now().UnixNano()
	}

	return retryOnBusy(s.clock, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO udi_evaluations (
				evaluation_id, dataset_version, eval_set, summary, created_at
			) VALUES (?, ?, ?, ?, ?)`,
			eval.EvaluationID, eval.DatasetVersion, eval.EvalSet, eval.Summary, eval.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}

		for i, m := range eval.Metrics {
			var value interface{}
			if !math.IsNaN(m.Value) {
				value = m.Value
			}
			_, err = tx.Exec(`
				INSERT INTO udi_evaluation_metrics (
					evaluation_id, position, class_name, metric_key, value
				) VALUES (?, ?, ?, ?, ?)`,
				eval.EvaluationID, i, m.ClassName, m.MetricKey, value,
			)
			if err != nil {
				return fmt.Errorf("insert metric %s/%s: %w", m.ClassName, m.MetricKey, err)
			}
		}
		return tx.Commit()
	})
}

// Get returns a single evaluation with its metrics.
func (s *EvaluationStore) Get(evaluationID string) (*Evaluation, error) {
	row := s.db.QueryRow(`
		SELECT evaluation_id, dataset_version, eval_set, summary, created_at
		FROM udi_evaluations
		WHERE evaluation_id = ?`, evaluationID)

	var e Evaluation
	err := row.Scan(&e.EvaluationID, &e.DatasetVersion, &e.EvalSet, &e.Summary, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("evaluation %s: %w", evaluationID, ErrNotFound)
		}
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}

	metrics, err := s.metrics(evaluationID)
	if err != nil {
		return nil, err
	}
	e.Metrics = metrics
	return &e, nil
}

func (s *EvaluationStore) metrics(evaluationID string) ([]Metric, error) {
	rows, err := s.db.Query(`
		SELECT class_name, metric_key, value
		FROM udi_evaluation_metrics
		WHERE evaluation_id = ?
		ORDER BY position`, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		var value sql.NullFloat64
		if err := rows.Scan(&m.ClassName, &m.MetricKey, &value); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		m.Value = math.NaN()
		if value.Valid {
			m.Value = value.Float64
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// List returns evaluations newest first, without metrics. A limit of zero
// or less returns all rows.
func (s *EvaluationStore) List(limit int) ([]*Evaluation, error) {
	query := `
		SELECT evaluation_id, dataset_version, eval_set, summary, created_at
		FROM udi_evaluations
		ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*Evaluation
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(&e.EvaluationID, &e.DatasetVersion, &e.EvalSet, &e.Summary, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation row: %w", err)
		}
		evals = append(evals, &e)
	}
	return evals, rows.Err()
}

// Delete removes an evaluation and its metrics.
func (s *EvaluationStore) Delete(evaluationID string) error {
	return retryOnBusy(s.clock, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM udi_evaluation_metrics WHERE evaluation_id = ?`, evaluationID); err != nil {
			return fmt.Errorf("delete metrics: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM udi_evaluations WHERE evaluation_id = ?`, evaluationID)
		if err != nil {
			return fmt.Errorf("delete evaluation: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("evaluation %s: %w", evaluationID, ErrNotFound)
		}
		return tx.Commit()
	})
}
