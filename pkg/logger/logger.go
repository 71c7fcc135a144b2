package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level string // debug, info, warn, error
	JSON  bool   // 生产环境使用 JSON 输出
}

var (
	mu     sync.RWMutex
	global = zap.NewNop().Sugar()
)

// Init 初始化全局日志
func Init(cfg Config) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.JSON {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	global = l.Sugar()
	mu.Unlock()
	return nil
}

// L 获取全局日志实例
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync 刷新缓冲区，退出前调用
func Sync() {
	_ = L().Sync()
}

func Debugf(template string, args ...interface{}) { L().Debugf(template, args...) }
func Infof(template string, args ...interface{})  { L().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { L().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { L().Errorf(template, args...) }
