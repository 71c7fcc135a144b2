package wizard

import "sync"

// RequestContext 发起异步请求时的状态上下文
// 响应到达时上下文不一致即为过期响应，直接丢弃
type RequestContext struct {
	Carrier     string
	BillingType BillingType
	Epoch       uint64
}

// Store 单写者状态容器，所有变更经由 Reduce
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore 创建初始状态的 Store
func NewStore() *Store {
	return &Store{state: InitialState()}
}

// State 当前状态快照
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Context 当前请求上下文
func (s *Store) Context() RequestContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contextOf(s.state)
}

// Dispatch 依次应用 actions，返回新状态
func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	return s.state
}

// DispatchIf 上下文仍有效时才应用 actions
func (s *Store) DispatchIf(rc RequestContext, actions ...Action) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contextOf(s.state) != rc {
		return s.state, false
	}
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	return s.state, true
}

// Update 在写锁内读取状态并决定要应用的 actions
// 用于"检查已存在再获取"这类需要原子判断的场景
func (s *Store) Update(fn func(State) []Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range fn(s.state) {
		s.state = Reduce(s.state, a)
	}
	return s.state
}

func contextOf(st State) RequestContext {
	return RequestContext{
		Carrier:     st.CarrierName(),
		BillingType: st.SelectedBillingType,
		Epoch:       st.Epoch,
	}
}
