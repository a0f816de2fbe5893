package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/optimizer"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// decodeRunParameters 在默认参数的基础上应用请求中的覆盖项
func (h *Handler) decodeRunParameters(raw json.RawMessage) (optimizer.Parameters, error) {
	params := optimizer.DefaultParameters()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return params, err
		}
	}
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string          `json:"name" validate:"required"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params, err := h.decodeRunParameters(req.Parameters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 投递之前先同步校验任务图和工人数据，让调用方立刻拿到输入错误，
	// 而不是等 worker 消费后才发现运行失败
	tasks, err := h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	workers, err := h.repository.GetActiveWorkers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := optimizer.ValidateInput(tasks, workers); err != nil {
		var cfgErr *optimizer.ConfigurationError
		var inputErr *optimizer.InputError
		switch {
		case errors.As(err, &cfgErr), errors.As(err, &inputErr):
			h.badRequest(w, r, err)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 归一化之后的完整参数入库，worker 不再需要重复做默认值填充
	paramsData, err := json.Marshal(params)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	run := &domain.OptimizationRun{
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.RunStatusPending,
		Parameters:  paramsData,
		CreatedBy:   myInfo.ID,
	}

	if err := h.repository.CreateRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 投递优化任务到消息队列
	jobData, err := json.Marshal(domain.RunJob{RunID: run.ID})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.amqpChannel.PublishWithContext(
		ctx,
		"",
		"run_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        jobData,
		},
	); err != nil {
		// 投递失败时把运行标记为失败，避免留下永远 pending 的运行
		if failErr := h.repository.FailRun(run.ID, "任务投递失败"); failErr != nil {
			h.internalServerError(w, r, failErr)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "优化运行创建成功", run)
}

func (h *Handler) GetAllRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repository.GetAllRuns()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化运行列表成功", runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)
	h.successResponse(w, r, "获取优化运行成功", run)
}

func (h *Handler) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(RunCtx).(*domain.OptimizationRun)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	val, err := h.redisClient.Get(ctx, fmt.Sprintf("run_progress_%d", run.ID)).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			// 进度键不存在时退化为数据库中的状态
			h.successResponse(w, r, "获取优化进度成功", domain.RunProgress{Status: run.Status})
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	var progress domain.RunProgress
	if err := json.Unmarshal([]byte(val), &progress); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化进度成功", progress)
}

// GenerateSync 同步执行一次小规模优化并直接返回结果，不落库也不走消息队列
func (h *Handler) GenerateSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parameters json.RawMessage `json:"parameters"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params, err := h.decodeRunParameters(req.Parameters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 同步接口的求解时间被限制在配置的上限以内
	if params.TimeLimitSeconds > h.config.Optimizer.SyncTimeLimit {
		params.TimeLimitSeconds = h.config.Optimizer.SyncTimeLimit
	}

	tasks, err := h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	workers, err := h.repository.GetActiveWorkers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), tasks, workers, params, nil)
	if err != nil {
		var cfgErr *optimizer.ConfigurationError
		var inputErr *optimizer.InputError
		switch {
		case errors.As(err, &cfgErr), errors.As(err, &inputErr):
			h.badRequest(w, r, err)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "排程生成成功", result)
}
