package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"carrier_wizard_v1/internal/model"
	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/pkg/logger"
)

// LabelArchiver 从原始报文补传面单
type LabelArchiver interface {
	Rearchive(ctx context.Context, rec *model.ShipmentRecord) ([]string, error)
}

// ==================== LabelArchiveTask 面单补传任务 ====================

// LabelArchiveConfig 面单补传配置
type LabelArchiveConfig struct {
	Spec        string        // cron 表达式（带秒）
	Window      time.Duration // 只补传这段时间内创建的运单
	BatchSize   int
	Concurrency int
}

// DefaultLabelArchiveConfig 每 10 分钟补传最近 24 小时的运单
func DefaultLabelArchiveConfig() LabelArchiveConfig {
	return LabelArchiveConfig{
		Spec:        "0 0/10 * * * *",
		Window:      24 * time.Hour,
		BatchSize:   50,
		Concurrency: 5,
	}
}

// LabelArchiveTask 定时补传归档失败的面单
type LabelArchiveTask struct {
	shipmentRepo repository.ShipmentRepository
	archiver     LabelArchiver
	cfg          LabelArchiveConfig
	cron         *cron.Cron
	now          func() time.Time
}

// NewLabelArchiveTask 创建面单补传任务
func NewLabelArchiveTask(shipmentRepo repository.ShipmentRepository, archiver LabelArchiver, cfg LabelArchiveConfig) *LabelArchiveTask {
	def := DefaultLabelArchiveConfig()
	if cfg.Spec == "" {
		cfg.Spec = def.Spec
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &LabelArchiveTask{
		shipmentRepo: shipmentRepo,
		archiver:     archiver,
		cfg:          cfg,
		cron:         cron.New(cron.WithSeconds()),
		now:          time.Now,
	}
}

// Start 启动定时任务
func (t *LabelArchiveTask) Start() error {
	_, err := t.cron.AddFunc(t.cfg.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("[LabelArchiveTask] 无法启动补传任务: %w", err)
	}
	t.cron.Start()
	logger.Infof("[LabelArchiveTask] 面单补传任务已启动 (%s)", t.cfg.Spec)
	return nil
}

// Stop 停止定时任务
func (t *LabelArchiveTask) Stop() {
	<-t.cron.Stop().Done()
	logger.Infof("[LabelArchiveTask] 已停止")
}

// RunOnce 执行一次补传，返回成功和失败数
func (t *LabelArchiveTask) RunOnce(ctx context.Context) (success, failed int) {
	records, err := t.shipmentRepo.ListMissingLabels(ctx, t.now().Add(-t.cfg.Window), t.cfg.BatchSize)
	if err != nil {
		logger.Errorf("[LabelArchiveTask] 获取待补传运单失败: %v", err)
		return 0, 0
	}
	if len(records) == 0 {
		return 0, 0
	}

	logger.Infof("[LabelArchiveTask] 开始补传 %d 条运单面单", len(records))

	sem := make(chan struct{}, t.cfg.Concurrency)
	var wg sync.WaitGroup
	var successCount, failCount int32

loop:
	for i := range records {
		select {
		case <-ctx.Done():
			logger.Warnf("[LabelArchiveTask] 补传任务超时停止")
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(rec *model.ShipmentRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			urls, err := t.archiver.Rearchive(ctx, rec)
			if err != nil || len(urls) == 0 {
				logger.Warnf("[LabelArchiveTask] 运单 %d 面单补传失败: %v", rec.ID, err)
				atomic.AddInt32(&failCount, 1)
				return
			}
			atomic.AddInt32(&successCount, 1)
		}(&records[i])
	}

	wg.Wait()
	logger.Infof("[LabelArchiveTask] 补传完成: 成功 %d, 失败 %d", successCount, failCount)
	return int(successCount), int(failCount)
}
