package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

const runColumns = `
	id,
	disaster_type,
	status,
	best_fitness,
	generations,
	converged_state,
	result,
	error_kind,
	error_message,
	created_at,
	finished_at,
	version
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*domain.OptimizationRun, error) {
	run := &domain.OptimizationRun{}

	var (
		convergedState sql.NullString
		result         []byte
		errorKind      sql.NullString
		errorMessage   sql.NullString
	)

	dst := []any{
		&run.ID,
		&run.DisasterType,
		&run.Status,
		&run.BestFitness,
		&run.Generations,
		&convergedState,
		&result,
		&errorKind,
		&errorMessage,
		&run.CreatedAt,
		&run.FinishedAt,
		&run.Version,
	}
	if err := s.Scan(dst...); err != nil {
		return nil, err
	}

	run.ConvergedState = domain.ConvergenceState(convergedState.String)
	run.ErrorKind = domain.ErrorKind(errorKind.String)
	run.ErrorMessage = errorMessage.String

	if len(result) > 0 {
		run.Result = &domain.OptimizationResult{}
		if err := json.Unmarshal(result, run.Result); err != nil {
			return nil, err
		}
	}

	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repository) CreateOptimizationRun(ctx context.Context, run *domain.OptimizationRun) error {
	query := `
		INSERT INTO optimization_runs (id, disaster_type, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	if err := r.dbpool.QueryRowContext(ctx, query, run.ID, run.DisasterType, run.Status).Scan(&run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOptimizationRunByID(ctx context.Context, id uuid.UUID) (*domain.OptimizationRun, error) {
	query := `SELECT ` + runColumns + ` FROM optimization_runs WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanRun(r.dbpool.QueryRowContext(ctx, query, id))
}

// ListOptimizationRuns 按创建时间倒序返回最近的运行记录，不包含结果正文
func (r *Repository) ListOptimizationRuns(ctx context.Context, limit int) ([]*domain.OptimizationRun, error) {
	query := `
		SELECT
			id,
			disaster_type,
			status,
			best_fitness,
			generations,
			converged_state,
			NULL::jsonb,
			error_kind,
			error_message,
			created_at,
			finished_at,
			version
		FROM optimization_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.OptimizationRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// UpdateOptimizationRun 使用乐观锁更新运行记录，版本不匹配时返回 sql.ErrNoRows
func (r *Repository) UpdateOptimizationRun(ctx context.Context, run *domain.OptimizationRun) error {
	query := `
		UPDATE optimization_runs
		SET
			status = $1,
			best_fitness = $2,
			generations = $3,
			converged_state = $4,
			result = $5,
			error_kind = $6,
			error_message = $7,
			finished_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	var result []byte
	if run.Result != nil {
		data, err := json.Marshal(run.Result)
		if err != nil {
			return err
		}
		result = data
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		run.Status,
		run.BestFitness,
		run.Generations,
		nullString(string(run.ConvergedState)),
		result,
		nullString(string(run.ErrorKind)),
		nullString(run.ErrorMessage),
		run.FinishedAt,
		run.ID,
		run.Version,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&run.Version); err != nil {
		return err
	}

	return nil
}
