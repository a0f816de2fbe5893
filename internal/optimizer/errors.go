package optimizer

import (
	"fmt"
	"strings"
)

// ConfigurationError 配置非法（权重不为 1、种群大小非正、没有任何工人等），
// 在演化开始前直接失败，不会重试
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func newConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// InputError 输入数据非法（依赖成环、引用了不存在的任务等），
// 携带出问题的标识符，方便调用方向用户反馈
type InputError struct {
	Message      string
	OffendingIDs []string
}

func (e *InputError) Error() string {
	if len(e.OffendingIDs) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s：%s", e.Message, strings.Join(e.OffendingIDs, ", "))
}

func newInputError(msg string, ids ...string) *InputError {
	return &InputError{Message: msg, OffendingIDs: ids}
}
