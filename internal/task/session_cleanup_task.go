package task

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"carrier_wizard_v1/pkg/logger"
)

// ==================== 外部依赖接口 ====================

// SessionExpirer 向导会话注册表
type SessionExpirer interface {
	ExpireIdle() int
	Count() int
}

// LimiterSweeper 提交冷却记录
type LimiterSweeper interface {
	Sweep(maxAge time.Duration) int
}

// ==================== SessionCleanupTask 会话清理任务 ====================

// SessionCleanupConfig 会话清理配置
type SessionCleanupConfig struct {
	Spec          string        // cron 表达式（带秒）
	LimiterMaxAge time.Duration // 冷却记录保留时长
}

// DefaultSessionCleanupConfig 每分钟执行
func DefaultSessionCleanupConfig() SessionCleanupConfig {
	return SessionCleanupConfig{
		Spec:          "0 * * * * *",
		LimiterMaxAge: 10 * time.Minute,
	}
}

// SessionCleanupTask 定时丢弃空闲会话并清理冷却记录
type SessionCleanupTask struct {
	sessions SessionExpirer
	limiter  LimiterSweeper
	cfg      SessionCleanupConfig
	cron     *cron.Cron
}

// NewSessionCleanupTask 创建会话清理任务，limiter 可为 nil
func NewSessionCleanupTask(sessions SessionExpirer, limiter LimiterSweeper, cfg SessionCleanupConfig) *SessionCleanupTask {
	def := DefaultSessionCleanupConfig()
	if cfg.Spec == "" {
		cfg.Spec = def.Spec
	}
	if cfg.LimiterMaxAge <= 0 {
		cfg.LimiterMaxAge = def.LimiterMaxAge
	}
	return &SessionCleanupTask{
		sessions: sessions,
		limiter:  limiter,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *SessionCleanupTask) Start() error {
	if _, err := t.cron.AddFunc(t.cfg.Spec, func() { t.RunOnce() }); err != nil {
		return fmt.Errorf("[SessionCleanupTask] 无法启动清理任务: %w", err)
	}
	t.cron.Start()
	logger.Infof("[SessionCleanupTask] 会话清理任务已启动 (%s)", t.cfg.Spec)
	return nil
}

// Stop 停止定时任务，等待正在执行的清理结束
func (t *SessionCleanupTask) Stop() {
	<-t.cron.Stop().Done()
	logger.Infof("[SessionCleanupTask] 已停止")
}

// RunOnce 执行一次清理，返回丢弃的会话数
func (t *SessionCleanupTask) RunOnce() int {
	expired := t.sessions.ExpireIdle()
	swept := 0
	if t.limiter != nil {
		swept = t.limiter.Sweep(t.cfg.LimiterMaxAge)
	}
	if expired > 0 || swept > 0 {
		logger.Infof("[SessionCleanupTask] 丢弃空闲会话 %d 个，剩余 %d 个，清理冷却记录 %d 条",
			expired, t.sessions.Count(), swept)
	}
	return expired
}
