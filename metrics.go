package authkit

import "sync/atomic"

// Metrics counts engine operations. All counters are monotonic and safe for
// concurrent use; when metrics are disabled the engine carries a nil *Metrics
// and every method is a no-op.
type Metrics struct {
	loginSuccess        atomic.Uint64
	loginFailure        atomic.Uint64
	registerSuccess     atomic.Uint64
	registerDuplicate   atomic.Uint64
	refreshSuccess      atomic.Uint64
	refreshReuse        atomic.Uint64
	refreshFailure      atomic.Uint64
	logout              atomic.Uint64
	logoutStoreFailures atomic.Uint64
	resetRequested      atomic.Uint64
	resetConfirmed      atomic.Uint64
	resetRejected       atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	LoginSuccess        uint64 `json:"login_success"`
	LoginFailure        uint64 `json:"login_failure"`
	RegisterSuccess     uint64 `json:"register_success"`
	RegisterDuplicate   uint64 `json:"register_duplicate"`
	RefreshSuccess      uint64 `json:"refresh_success"`
	RefreshReuseDetected uint64 `json:"refresh_reuse_detected"`
	RefreshFailure      uint64 `json:"refresh_failure"`
	Logout              uint64 `json:"logout"`
	LogoutStoreFailures uint64 `json:"logout_store_failures"`
	ResetRequested      uint64 `json:"reset_requested"`
	ResetConfirmed      uint64 `json:"reset_confirmed"`
	ResetRejected       uint64 `json:"reset_rejected"`
}

func (m *Metrics) incLoginSuccess() {
	if m != nil {
		m.loginSuccess.Add(1)
	}
}

func (m *Metrics) incLoginFailure() {
	if m != nil {
		m.loginFailure.Add(1)
	}
}

func (m *Metrics) incRegisterSuccess() {
	if m != nil {
		m.registerSuccess.Add(1)
	}
}

func (m *Metrics) incRegisterDuplicate() {
	if m != nil {
		m.registerDuplicate.Add(1)
	}
}

func (m *Metrics) incRefreshSuccess() {
	if m != nil {
		m.refreshSuccess.Add(1)
	}
}

func (m *Metrics) incRefreshReuse() {
	if m != nil {
		m.refreshReuse.Add(1)
	}
}

func (m *Metrics) incRefreshFailure() {
	if m != nil {
		m.refreshFailure.Add(1)
	}
}

func (m *Metrics) incLogout() {
	if m != nil {
		m.logout.Add(1)
	}
}

func (m *Metrics) incLogoutStoreFailure() {
	if m != nil {
		m.logoutStoreFailures.Add(1)
	}
}

func (m *Metrics) incResetRequested() {
	if m != nil {
		m.resetRequested.Add(1)
	}
}

func (m *Metrics) incResetConfirmed() {
	if m != nil {
		m.resetConfirmed.Add(1)
	}
}

func (m *Metrics) incResetRejected() {
	if m != nil {
		m.resetRejected.Add(1)
	}
}

// Snapshot returns a consistent-enough copy of the counters. A nil receiver
// yields the zero snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		LoginSuccess:         m.loginSuccess.Load(),
		LoginFailure:         m.loginFailure.Load(),
		RegisterSuccess:      m.registerSuccess.Load(),
		RegisterDuplicate:    m.registerDuplicate.Load(),
		RefreshSuccess:       m.refreshSuccess.Load(),
		RefreshReuseDetected: m.refreshReuse.Load(),
		RefreshFailure:       m.refreshFailure.Load(),
		Logout:               m.logout.Load(),
		LogoutStoreFailures:  m.logoutStoreFailures.Load(),
		ResetRequested:       m.resetRequested.Load(),
		ResetConfirmed:       m.resetConfirmed.Load(),
		ResetRejected:        m.resetRejected.Load(),
	}
}
