package task

import (
	"context"

	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/pkg/logger"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
// 管理范围：会话清理、面单补传
type TaskManager struct {
	sessionTask *SessionCleanupTask
	labelTask   *LabelArchiveTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Sessions     SessionExpirer
	Limiter      LimiterSweeper
	ShipmentRepo repository.ShipmentRepository
	Archiver     LabelArchiver // 未配置存储时为 nil
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	SessionCleanup SessionCleanupConfig

	LabelArchiveEnabled bool
	LabelArchive        LabelArchiveConfig
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		SessionCleanup:      DefaultSessionCleanupConfig(),
		LabelArchiveEnabled: true,
		LabelArchive:        DefaultLabelArchiveConfig(),
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if deps.Sessions != nil {
		tm.sessionTask = NewSessionCleanupTask(deps.Sessions, deps.Limiter, cfg.SessionCleanup)
	}
	if cfg.LabelArchiveEnabled && deps.ShipmentRepo != nil && deps.Archiver != nil {
		tm.labelTask = NewLabelArchiveTask(deps.ShipmentRepo, deps.Archiver, cfg.LabelArchive)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	logger.Infof("[TaskManager] 正在启动后台任务...")

	if tm.sessionTask != nil {
		if err := tm.sessionTask.Start(); err != nil {
			return err
		}
	}
	if tm.labelTask != nil {
		if err := tm.labelTask.Start(); err != nil {
			return err
		}
	}

	logger.Infof("[TaskManager] 后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	logger.Infof("[TaskManager] 正在停止后台任务...")

	if tm.sessionTask != nil {
		tm.sessionTask.Stop()
	}
	if tm.labelTask != nil {
		tm.labelTask.Stop()
	}

	logger.Infof("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerSessionCleanup 立即清理空闲会话
func (tm *TaskManager) TriggerSessionCleanup() (int, error) {
	if tm.sessionTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.sessionTask.RunOnce(), nil
}

// TriggerLabelArchive 立即补传面单
func (tm *TaskManager) TriggerLabelArchive(ctx context.Context) (success, failed int, err error) {
	if tm.labelTask == nil {
		return 0, 0, ErrTaskDisabled
	}
	success, failed = tm.labelTask.RunOnce(ctx)
	return success, failed, nil
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"session_cleanup": tm.sessionTask != nil,
		"label_archive":   tm.labelTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
