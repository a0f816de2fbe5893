package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/utils"
)

func (h *Handler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task := r.Context().Value(TaskCtx).(*domain.Task)
	h.successResponse(w, r, "获取任务成功", task)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskKey           string             `json:"taskKey" validate:"required"`
		Name              string             `json:"name" validate:"required"`
		EstimatedHours    float64            `json:"estimatedHours" validate:"required,gt=0"`
		SkillRequirements map[string]float64 `json:"skillRequirements"`
		Dependencies      []string           `json:"dependencies"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	task := &domain.Task{
		TaskKey:           req.TaskKey,
		Name:              req.Name,
		EstimatedHours:    req.EstimatedHours,
		SkillRequirements: req.SkillRequirements,
		Dependencies:      req.Dependencies,
	}
	if task.SkillRequirements == nil {
		task.SkillRequirements = map[string]float64{}
	}
	if task.Dependencies == nil {
		task.Dependencies = []string{}
	}

	if err := utils.ValidateTask(task); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 依赖的任务必须已经存在
	for _, dep := range task.Dependencies {
		exists, err := h.repository.CheckTaskKeyIfExists(dep)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if !exists {
			h.badRequest(w, r, errors.New("依赖的任务不存在："+dep))
			return
		}
	}

	if err := h.repository.CreateTask(task); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "tasks_task_key_key":
			h.badRequest(w, r, errors.New("任务标识已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "任务创建成功", task)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              *string             `json:"name"`
		EstimatedHours    *float64            `json:"estimatedHours" validate:"omitempty,gt=0"`
		SkillRequirements *map[string]float64 `json:"skillRequirements"`
		Dependencies      *[]string           `json:"dependencies"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	task := r.Context().Value(TaskCtx).(*domain.Task)

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.SkillRequirements != nil {
		task.SkillRequirements = *req.SkillRequirements
	}
	if req.Dependencies != nil {
		task.Dependencies = *req.Dependencies
	}

	if err := utils.ValidateTask(task); err != nil {
		h.badRequest(w, r, err)
		return
	}

	for _, dep := range task.Dependencies {
		exists, err := h.repository.CheckTaskKeyIfExists(dep)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if !exists {
			h.badRequest(w, r, errors.New("依赖的任务不存在："+dep))
			return
		}
	}

	if err := h.repository.UpdateTask(task); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新任务失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新任务成功", task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task := r.Context().Value(TaskCtx).(*domain.Task)

	// 不允许删除仍被其它任务依赖的任务
	tasks, err := h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if dep == task.TaskKey {
				h.errorResponse(w, r, "任务仍被其它任务依赖，无法删除")
				return
			}
		}
	}

	if err := h.repository.DeleteTask(task.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除任务成功", nil)
}
