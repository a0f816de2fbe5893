package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

func (r *Repository) CreateRun(run *domain.OptimizationRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO optimization_runs (name, description, status, parameters, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	args := []any{run.Name, run.Description, run.Status, []byte(run.Parameters), run.CreatedBy}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetRunByID(id int64) (*domain.OptimizationRun, error) {
	query := `
		SELECT name, description, status, parameters, result, diagnostics, error_message, created_by, created_at, finished_at, version
		FROM optimization_runs WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	run := &domain.OptimizationRun{
		ID: id,
	}

	var result, diagnostics []byte
	var errorMessage sql.NullString
	var finishedAt sql.NullTime
	dst := []any{&run.Name, &run.Description, &run.Status, &run.Parameters, &result, &diagnostics, &errorMessage, &run.CreatedBy, &run.CreatedAt, &finishedAt, &run.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	run.Result = result
	run.Diagnostics = diagnostics
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

func (r *Repository) GetAllRuns() ([]*domain.OptimizationRun, error) {
	query := `
		SELECT id, name, description, status, error_message, created_by, created_at, finished_at, version
		FROM optimization_runs ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// 列表接口不返回参数和结果，这两个字段可能很大
	runs := make([]*domain.OptimizationRun, 0)
	for rows.Next() {
		run := &domain.OptimizationRun{}
		var errorMessage sql.NullString
		var finishedAt sql.NullTime
		dst := []any{&run.ID, &run.Name, &run.Description, &run.Status, &errorMessage, &run.CreatedBy, &run.CreatedAt, &finishedAt, &run.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if errorMessage.Valid {
			run.ErrorMessage = errorMessage.String
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// MarkRunRunning 将运行状态从 pending 置为 running，返回是否成功抢占
// worker 可能收到重复投递的消息，依靠这里的条件更新保证一次运行只被执行一次
func (r *Repository) MarkRunRunning(id int64) (bool, error) {
	query := `
		UPDATE optimization_runs
		SET status = $1, version = version + 1
		WHERE id = $2 AND status = $3
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, domain.RunStatusRunning, id, domain.RunStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// CompleteRun 在同一个事务中写入结果和诊断信息并更新状态
func (r *Repository) CompleteRun(run *domain.OptimizationRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE optimization_runs
		SET
			status = $1,
			result = $2,
			diagnostics = $3,
			finished_at = now(),
			version = version + 1
		WHERE id = $4
		RETURNING finished_at, version
	`

	args := []any{domain.RunStatusSucceeded, []byte(run.Result), []byte(run.Diagnostics), run.ID}
	var finishedAt time.Time
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&finishedAt, &run.Version); err != nil {
		return err
	}
	run.Status = domain.RunStatusSucceeded
	run.FinishedAt = &finishedAt

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) FailRun(id int64, errorMessage string) error {
	query := `
		UPDATE optimization_runs
		SET status = $1, error_message = $2, finished_at = now(), version = version + 1
		WHERE id = $3
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, domain.RunStatusFailed, errorMessage, id)
	if err != nil {
		return err
	}

	return nil
}
