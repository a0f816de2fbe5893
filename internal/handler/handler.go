package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/config"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/optimizer"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	amqpChannel *amqp.Channel
	redisClient *redis.Client
	optimizer   *optimizer.Optimizer

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, amqpCh *amqp.Channel, rdb *redis.Client, opt *optimizer.Optimizer) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		amqpChannel: amqpCh,
		redisClient: rdb,
		optimizer:   opt,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/password", h.UpdateUserPassword)
			})
		})

		// 任务和工人对所有登录用户可读，写操作只开放给调度员和管理员
		r.Route("/tasks", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Post("/", h.CreateTask)
			r.Get("/", h.GetAllTasks)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.task)
				r.Get("/", h.GetTask)
				r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Patch("/", h.UpdateTask)
				r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Delete("/", h.DeleteTask)
			})
		})

		r.Route("/workers", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Post("/", h.CreateWorker)
			r.Get("/", h.GetAllWorkers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.worker)
				r.Get("/", h.GetWorker)
				r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Patch("/", h.UpdateWorker)
				r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Delete("/", h.DeleteWorker)
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Post("/", h.CreateRun)
			r.Get("/", h.GetAllRuns)
			// 同步求解接口，用于小规模问题的即时预览，时间限制被压到配置的上限以内
			r.With(h.RequiredRole([]domain.Role{domain.RolePlanner, domain.RoleAdmin})).Post("/generate", h.GenerateSync)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.run)
				r.Get("/", h.GetRun)
				r.Get("/progress", h.GetRunProgress)
			})
		})
	})
}
