package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nc-lab-dev/task-scheduler/backend/internal/config"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/optimizer"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type runWorker struct {
	cfg       *config.Config
	logger    *slog.Logger
	repo      *repository.Repository
	channel   *amqp.Channel
	redis     *redis.Client
	optimizer *optimizer.Optimizer
}

func (w *runWorker) consume(ctx context.Context) error {
	msgs, err := w.channel.Consume(
		"run_queue",
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			var job domain.RunJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				w.logger.Error("优化任务消息反序列化失败", "error", err)
				_ = msg.Nack(false, false)
				continue
			}

			w.execute(ctx, job.RunID)
			_ = msg.Ack(false)
		}
	}
}

// execute 执行一次优化运行并持久化结果，任何失败都会把运行标记为 failed
func (w *runWorker) execute(ctx context.Context, runID int64) {
	// 条件更新状态，保证重复投递的消息不会让同一个运行被执行两次
	claimed, err := w.repo.MarkRunRunning(runID)
	if err != nil {
		w.logger.Error("无法更新运行状态", "runID", runID, "error", err)
		return
	}
	if !claimed {
		w.logger.Info("运行已被处理过，跳过", "runID", runID)
		return
	}

	run, err := w.repo.GetRunByID(runID)
	if err != nil {
		w.logger.Error("无法加载优化运行", "runID", runID, "error", err)
		return
	}

	var params optimizer.Parameters
	if err := json.Unmarshal(run.Parameters, &params); err != nil {
		w.fail(run, fmt.Errorf("运行参数反序列化失败: %w", err))
		return
	}

	tasks, err := w.repo.GetAllTasks()
	if err != nil {
		w.fail(run, err)
		return
	}
	workers, err := w.repo.GetActiveWorkers()
	if err != nil {
		w.fail(run, err)
		return
	}

	w.logger.Info("开始执行优化运行", "runID", run.ID, "name", run.Name)

	result, err := w.optimizer.Optimize(ctx, tasks, workers, params, func(p optimizer.Progress) {
		w.reportProgress(run.ID, domain.RunProgress{
			Status:      domain.RunStatusRunning,
			Island:      p.Island,
			Generation:  p.Generation,
			BestFitness: p.BestFitness,
			UpdatedAt:   time.Now(),
		})
	})
	if err != nil {
		w.fail(run, err)
		return
	}

	resultData, err := json.Marshal(struct {
		Best    *optimizer.Solution        `json:"best"`
		Fitness optimizer.FitnessBreakdown `json:"fitness"`
	}{Best: result.Best, Fitness: result.Fitness})
	if err != nil {
		w.fail(run, err)
		return
	}
	diagnosticsData, err := json.Marshal(result.Diagnostics)
	if err != nil {
		w.fail(run, err)
		return
	}

	run.Result = resultData
	run.Diagnostics = diagnosticsData
	if err := w.repo.CompleteRun(run); err != nil {
		w.fail(run, err)
		return
	}

	w.reportProgress(run.ID, domain.RunProgress{
		Status:      domain.RunStatusSucceeded,
		BestFitness: result.Fitness.Total,
		UpdatedAt:   time.Now(),
	})

	w.logger.Info("优化运行完成", "runID", run.ID, "bestFitness", result.Fitness.Total)
	w.notify(run, result.Fitness.Total, terminationSummary(result.Diagnostics))
}

func (w *runWorker) fail(run *domain.OptimizationRun, cause error) {
	w.logger.Error("优化运行失败", "runID", run.ID, "error", cause)

	if err := w.repo.FailRun(run.ID, cause.Error()); err != nil {
		w.logger.Error("无法标记运行为失败", "runID", run.ID, "error", err)
		return
	}

	w.reportProgress(run.ID, domain.RunProgress{
		Status:    domain.RunStatusFailed,
		UpdatedAt: time.Now(),
	})

	run.Status = domain.RunStatusFailed
	w.notify(run, 0, cause.Error())
}

// reportProgress 把进度写入 redis，写失败只记日志，不影响运行本身
func (w *runWorker) reportProgress(runID int64, progress domain.RunProgress) {
	data, err := json.Marshal(progress)
	if err != nil {
		w.logger.Error("进度序列化失败", "runID", runID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.cfg.Redis.OperationExpiration)*time.Second)
	defer cancel()

	key := fmt.Sprintf("run_progress_%d", runID)
	if err := w.redis.Set(ctx, key, data, time.Duration(w.cfg.Optimizer.ProgressExpiration)*time.Second).Err(); err != nil {
		w.logger.Error("进度写入失败", "runID", runID, "error", err)
	}
}

// notify 向运行的创建者投递一封结果通知邮件
func (w *runWorker) notify(run *domain.OptimizationRun, bestFitness float64, termination string) {
	creator, err := w.repo.GetUserByID(run.CreatedBy)
	if err != nil {
		w.logger.Error("无法加载运行创建者", "runID", run.ID, "error", err)
		return
	}

	var statusText string
	if run.Status == domain.RunStatusFailed {
		statusText = "失败"
	} else {
		statusText = "成功"
	}

	body, err := json.Marshal(domain.MailMessage{
		Type: "run_finished",
		To:   creator.Email,
		Data: domain.RunFinishedMailData{
			FullName:    creator.FullName,
			RunName:     run.Name,
			Status:      statusText,
			BestFitness: bestFitness,
			Termination: termination,
		},
	})
	if err != nil {
		w.logger.Error("通知邮件序列化失败", "runID", run.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := w.channel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		w.logger.Error("通知邮件投递失败", "runID", run.ID, "error", err)
	}
}

var stateTexts = map[optimizer.IslandState]string{
	optimizer.StateConverged:             "已收敛",
	optimizer.StateTimedOut:              "达到时间限制",
	optimizer.StateMaxGenerationsReached: "达到最大代数",
}

// terminationSummary 汇总各岛屿的终止原因，用于通知邮件
func terminationSummary(diag optimizer.Diagnostics) string {
	counts := make(map[optimizer.IslandState]int)
	for _, island := range diag.Islands {
		counts[island.State]++
	}

	parts := make([]string, 0, len(counts))
	for state, text := range stateTexts {
		if counts[state] > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", text, counts[state]))
		}
	}
	return strings.Join(parts, "，")
}
