package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carrier_wizard_v1/internal/gateway"
	"carrier_wizard_v1/internal/wizard"
	"carrier_wizard_v1/pkg/logger"
)

// ==================== 页面错误 ====================

// PageError 页面级错误，只影响所在页面
type PageError struct {
	Page    wizard.Page `json:"page"`
	Label   string      `json:"label"`
	Message string      `json:"message"`
	Details []string    `json:"details,omitempty"`
}

// Slot 参考数据/操作槽位，同一上下文内同一槽位只允许一个请求
type Slot string

const (
	SlotCarriers   Slot = "carriers"
	SlotContainers Slot = "containers"
	SlotAccounts   Slot = "accounts"
	SlotBillTos    Slot = "bill_tos"
	SlotServices   Slot = "services"
	SlotImageTypes Slot = "image_types"
	SlotStockTypes Slot = "stock_types"
	SlotPackages   Slot = "packages"
	SlotAddress    Slot = "address"
	SlotRate       Slot = "rate"
	SlotShipment   Slot = "shipment"
	SlotVoid       Slot = "void"
)

// ==================== Session 向导会话 ====================

// Session 一个客户 + 发货人的向导会话
type Session struct {
	ID        string
	Store     *wizard.Store
	CreatedAt time.Time

	mu         sync.Mutex
	customer   gateway.CustomerContext
	errors     map[wizard.Page]*PageError
	busy       map[Slot]wizard.RequestContext
	lastActive time.Time
	recordID   int64
}

func newSession(cc gateway.CustomerContext, now time.Time) *Session {
	return &Session{
		ID:         uuid.New().String(),
		Store:      wizard.NewStore(),
		CreatedAt:  now,
		customer:   cc,
		errors:     make(map[wizard.Page]*PageError),
		busy:       make(map[Slot]wizard.RequestContext),
		lastActive: now,
	}
}

// Customer 当前客户上下文
func (s *Session) Customer() gateway.CustomerContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// LastActive 最后活跃时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// RecordID 已持久化的运单记录 ID
func (s *Session) RecordID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordID
}

func (s *Session) touch(cc gateway.CustomerContext, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = cc
	s.lastActive = now
}

// 以下方法要求调用方持有 s.mu

func (s *Session) setError(pe *PageError) {
	s.errors[pe.Page] = pe
}

func (s *Session) clearError(page wizard.Page) {
	delete(s.errors, page)
}

func (s *Session) clearAllErrors() {
	s.errors = make(map[wizard.Page]*PageError)
}

func (s *Session) pageErrors() []PageError {
	out := make([]PageError, 0, len(s.errors))
	for _, pe := range s.errors {
		out = append(out, *pe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// acquire 占用槽位，上下文变化后旧请求不再占用
func (s *Session) acquire(slot Slot, rc wizard.RequestContext) bool {
	if held, ok := s.busy[slot]; ok && held == rc {
		return false
	}
	s.busy[slot] = rc
	return true
}

func (s *Session) release(slot Slot, rc wizard.RequestContext) {
	if held, ok := s.busy[slot]; ok && held == rc {
		delete(s.busy, slot)
	}
}

func (s *Session) busySlots(rc wizard.RequestContext) []Slot {
	out := make([]Slot, 0, len(s.busy))
	for slot, held := range s.busy {
		if held == rc {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ==================== SessionService 会话注册表 ====================

// SessionService 内存会话注册表，key 为 customerID:shipperID
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionService 创建会话注册表
func NewSessionService(ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionService{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func sessionKey(cc gateway.CustomerContext) string {
	return cc.CustomerID + ":" + cc.ShipperID
}

// Open 获取或创建会话，同一客户切换发货人时丢弃旧会话
func (s *SessionService) Open(cc gateway.CustomerContext) (*Session, bool) {
	now := s.now()
	key := sessionKey(cc)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, sess := range s.sessions {
		c := sess.Customer()
		if c.CustomerID == cc.CustomerID && c.ShipperID != cc.ShipperID {
			delete(s.sessions, k)
			logger.Infof("[SessionService] 发货人切换，丢弃会话 %s (shipper=%s)", sess.ID, c.ShipperID)
		}
	}

	if sess, ok := s.sessions[key]; ok {
		sess.touch(cc, now)
		return sess, false
	}

	sess := newSession(cc, now)
	s.sessions[key] = sess
	logger.Infof("[SessionService] 创建会话 %s (customer=%s, shipper=%s)", sess.ID, cc.CustomerID, cc.ShipperID)
	return sess, true
}

// Get 获取会话并刷新活跃时间
func (s *SessionService) Get(cc gateway.CustomerContext) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionKey(cc)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(cc, s.now())
	return sess, nil
}

// Close 丢弃会话
func (s *SessionService) Close(cc gateway.CustomerContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(cc)
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	return true
}

// ExpireIdle 清理超过 TTL 未活跃的会话，返回清理数量
func (s *SessionService) ExpireIdle() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for key, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, key)
			expired++
		}
	}
	return expired
}

// Count 当前会话数
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// TTL 会话空闲超时
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
