package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
)

func (r *Repository) GetTaskByID(id int64) (*domain.Task, error) {
	query := `
		SELECT task_key, name, estimated_hours, skill_requirements, dependencies, created_at, version
		FROM tasks WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	task := &domain.Task{
		ID: id,
	}

	var skillRequirements, dependencies []byte
	dst := []any{&task.TaskKey, &task.Name, &task.EstimatedHours, &skillRequirements, &dependencies, &task.CreatedAt, &task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(skillRequirements, &task.SkillRequirements); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dependencies, &task.Dependencies); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *Repository) GetAllTasks() ([]*domain.Task, error) {
	query := `
		SELECT id, task_key, name, estimated_hours, skill_requirements, dependencies, created_at, version FROM tasks
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task := &domain.Task{}
		var skillRequirements, dependencies []byte
		dst := []any{&task.ID, &task.TaskKey, &task.Name, &task.EstimatedHours, &skillRequirements, &dependencies, &task.CreatedAt, &task.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(skillRequirements, &task.SkillRequirements); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(dependencies, &task.Dependencies); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *Repository) CreateTask(task *domain.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO tasks (task_key, name, estimated_hours, skill_requirements, dependencies)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	skillRequirements, err := json.Marshal(task.SkillRequirements)
	if err != nil {
		return err
	}
	dependencies, err := json.Marshal(task.Dependencies)
	if err != nil {
		return err
	}

	args := []any{task.TaskKey, task.Name, task.EstimatedHours, skillRequirements, dependencies}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateTask(task *domain.Task) error {
	query := `
		UPDATE tasks
		SET
			name = $1,
			estimated_hours = $2,
			skill_requirements = $3,
			dependencies = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING task_key, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	skillRequirements, err := json.Marshal(task.SkillRequirements)
	if err != nil {
		return err
	}
	dependencies, err := json.Marshal(task.Dependencies)
	if err != nil {
		return err
	}

	args := []any{task.Name, task.EstimatedHours, skillRequirements, dependencies, task.ID, task.Version}
	dst := []any{&task.TaskKey, &task.CreatedAt, &task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteTask(id int64) error {
	query := `
		DELETE FROM tasks WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckTaskKeyIfExists(taskKey string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM tasks WHERE task_key = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, taskKey).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
