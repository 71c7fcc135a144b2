package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== CooldownLimiter 冷却限流器 ====================

// CooldownLimiter 同一 key 在冷却间隔内只放行一次
// 用于拦截创建/取消运单的重复提交
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &CooldownLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *CooldownLimiter {
	return globalLimiter
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查并占用
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// CheckOnly 仅检查，不更新时间
func (r *CooldownLimiter) CheckOnly(key string, interval time.Duration) CheckResult {
	actual, ok := r.locks.Load(key)
	if !ok {
		return CheckResult{Allowed: true}
	}

	entry := actual.(*lockEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := time.Since(entry.lastTime)
	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	return CheckResult{Allowed: true}
}

// Reset 重置指定 key
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// Sweep 清理超过 maxAge 的条目，返回清理数量
func (r *CooldownLimiter) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	r.locks.Range(func(k, v any) bool {
		entry := v.(*lockEntry)
		entry.mu.Lock()
		stale := entry.lastTime.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			r.locks.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// ==================== Key 生成工具 ====================

// SubmitOp 需要防重复提交的操作
type SubmitOp string

const (
	SubmitOpShipment SubmitOp = "shipment"
	SubmitOpVoid     SubmitOp = "void"
	SubmitOpAddress  SubmitOp = "address"
)

// SubmitKey 客户 + 发货人 + 操作
func SubmitKey(customerID, shipperID string, op SubmitOp) string {
	return fmt.Sprintf("customer:%s:shipper:%s:%s", customerID, shipperID, op)
}

// DefaultIntervals 默认冷却间隔
var DefaultIntervals = map[SubmitOp]time.Duration{
	SubmitOpShipment: 3 * time.Second,
	SubmitOpVoid:     3 * time.Second,
	SubmitOpAddress:  time.Second,
}

// GetInterval 获取操作的默认间隔
func GetInterval(op SubmitOp) time.Duration {
	if interval, ok := DefaultIntervals[op]; ok {
		return interval
	}
	return 2 * time.Second
}
