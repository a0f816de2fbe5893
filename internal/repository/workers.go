package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

func (r *Repository) GetWorkerByID(id int64) (*domain.Worker, error) {
	query := `
		SELECT worker_key, name, skills, available_hours, is_active, created_at, version
		FROM workers WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	worker := &domain.Worker{
		ID: id,
	}

	var skills []byte
	dst := []any{&worker.WorkerKey, &worker.Name, &skills, &worker.AvailableHours, &worker.IsActive, &worker.CreatedAt, &worker.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(skills, &worker.Skills); err != nil {
		return nil, err
	}

	return worker, nil
}

func (r *Repository) GetAllWorkers() ([]*domain.Worker, error) {
	query := `
		SELECT id, worker_key, name, skills, available_hours, is_active, created_at, version FROM workers
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers := make([]*domain.Worker, 0)
	for rows.Next() {
		worker := &domain.Worker{}
		var skills []byte
		dst := []any{&worker.ID, &worker.WorkerKey, &worker.Name, &skills, &worker.AvailableHours, &worker.IsActive, &worker.CreatedAt, &worker.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(skills, &worker.Skills); err != nil {
			return nil, err
		}
		workers = append(workers, worker)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workers, nil
}

// GetActiveWorkers 只返回可参与排程的工人
func (r *Repository) GetActiveWorkers() ([]*domain.Worker, error) {
	workers, err := r.GetAllWorkers()
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Worker, 0, len(workers))
	for _, w := range workers {
		if w.IsActive {
			active = append(active, w)
		}
	}

	return active, nil
}

func (r *Repository) CreateWorker(worker *domain.Worker) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO workers (worker_key, name, skills, available_hours)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at, version
	`

	skills, err := json.Marshal(worker.Skills)
	if err != nil {
		return err
	}

	args := []any{worker.WorkerKey, worker.Name, skills, worker.AvailableHours}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&worker.ID, &worker.IsActive, &worker.CreatedAt, &worker.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateWorker(worker *domain.Worker) error {
	query := `
		UPDATE workers
		SET
			name = $1,
			skills = $2,
			available_hours = $3,
			is_active = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING worker_key, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	skills, err := json.Marshal(worker.Skills)
	if err != nil {
		return err
	}

	args := []any{worker.Name, skills, worker.AvailableHours, worker.IsActive, worker.ID, worker.Version}
	dst := []any{&worker.WorkerKey, &worker.CreatedAt, &worker.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteWorker(id int64) error {
	query := `
		DELETE FROM workers WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckWorkerKeyIfExists(workerKey string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM workers WHERE worker_key = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, workerKey).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
