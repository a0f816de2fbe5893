package handler

type ContextKey string

var (
	RoleCtxKey  ContextKey = "role"
	SubCtxKey   ContextKey = "sub"
	MyInfoCtx   ContextKey = "myInfo"
	UserInfoCtx ContextKey = "userInfo"
	TaskCtx     ContextKey = "task"
	WorkerCtx   ContextKey = "worker"
	RunCtx      ContextKey = "optimizationRun"
)
