package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/utils"
)

func (h *Handler) GetAllWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repository.GetAllWorkers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工人列表成功", workers)
}

func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)
	h.successResponse(w, r, "获取工人成功", worker)
}

func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerKey      string             `json:"workerKey" validate:"required"`
		Name           string             `json:"name" validate:"required"`
		Skills         map[string]float64 `json:"skills"`
		AvailableHours float64            `json:"availableHours" validate:"required,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	worker := &domain.Worker{
		WorkerKey:      req.WorkerKey,
		Name:           req.Name,
		Skills:         req.Skills,
		AvailableHours: req.AvailableHours,
	}
	if worker.Skills == nil {
		worker.Skills = map[string]float64{}
	}

	if err := utils.ValidateWorker(worker); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateWorker(worker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "workers_worker_key_key":
			h.badRequest(w, r, errors.New("工人标识已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "工人创建成功", worker)
}

func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           *string             `json:"name"`
		Skills         *map[string]float64 `json:"skills"`
		AvailableHours *float64            `json:"availableHours" validate:"omitempty,gt=0"`
		IsActive       *bool               `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	if req.Name != nil {
		worker.Name = *req.Name
	}
	if req.Skills != nil {
		worker.Skills = *req.Skills
	}
	if req.AvailableHours != nil {
		worker.AvailableHours = *req.AvailableHours
	}
	if req.IsActive != nil {
		worker.IsActive = *req.IsActive
	}

	if err := utils.ValidateWorker(worker); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.UpdateWorker(worker); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新工人失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新工人成功", worker)
}

func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	if err := h.repository.DeleteWorker(worker.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除工人成功", nil)
}
