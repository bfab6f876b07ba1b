// Package quota enforces submission caps over rolling hourly and daily
// windows, plus a process-wide cooldown after a detected block signal. Window
// state is persisted on every mutation so a restart cannot bypass a cap.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/apply-agent/internal/store"
)

// WindowStore persists quota windows. *store.DB implements it; tests use an
// in-memory fake.
type WindowStore interface {
	SaveQuotaWindow(ctx context.Context, row *store.QuotaWindowRow) error
	GetQuotaWindow(ctx context.Context, kind string, windowStart time.Time) (*store.QuotaWindowRow, error)
}

// Caps configures the per-window grant limits for one permit kind.
type Caps struct {
	Hourly int
	Daily  int
}

// Permit is a granted submission slot.
type Permit struct {
	Kind      string
	GrantedAt time.Time
}

// Denial explains a refused permit and when a retry could succeed.
type Denial struct {
	Reason     string
	RetryAfter time.Duration
}

// Denial reasons
const (
	DenialCooldown  = "cooldown"
	DenialHourlyCap = "hourly_cap"
	DenialDailyCap  = "daily_cap"
)

// window tracks grants inside one calendar-aligned span.
type window struct {
	start   time.Time
	span    time.Duration
	granted int
}

// Manager is the single owner of quota state. All mutation goes through its
// mutex; other components treat quota state as read-only.
type Manager struct {
	mu            sync.Mutex
	caps          Caps
	store         WindowStore
	now           func() time.Time
	hour          window
	day           window
	cooldownUntil time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects a clock (used in tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a quota manager. windows may be nil, in which case state
// is process-local only.
func NewManager(caps Caps, windows WindowStore, opts ...Option) *Manager {
	m := &Manager{
		caps:  caps,
		store: windows,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores the current windows and cooldown from the store. Call once at
// startup, before the first TryAcquire.
func (m *Manager) Load(ctx context.Context, kind string) error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.roll(now)

	for _, w := range []*window{&m.hour, &m.day} {
		row, err := m.store.GetQuotaWindow(ctx, rowKind(kind, w.span), w.start)
		if err != nil {
			return fmt.Errorf("failed to load quota window: %w", err)
		}
		if row == nil {
			continue
		}
		w.granted = row.Granted
		if row.CooldownUntil != nil && row.CooldownUntil.After(m.cooldownUntil) {
			m.cooldownUntil = *row.CooldownUntil
		}
	}
	return nil
}

// TryAcquire grants a permit when both windows have headroom and no cooldown
// is active. A nil Permit with a non-nil Denial means the caller should defer,
// not fail. A non-nil error means the store rejected the persist and the grant
// did not happen.
func (m *Manager) TryAcquire(ctx context.Context, kind string) (*Permit, *Denial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.roll(now)

	if now.Before(m.cooldownUntil) {
		return nil, &Denial{Reason: DenialCooldown, RetryAfter: m.cooldownUntil.Sub(now)}, nil
	}
	if m.caps.Hourly > 0 && m.hour.granted >= m.caps.Hourly {
		return nil, &Denial{Reason: DenialHourlyCap, RetryAfter: m.hour.start.Add(m.hour.span).Sub(now)}, nil
	}
	if m.caps.Daily > 0 && m.day.granted >= m.caps.Daily {
		return nil, &Denial{Reason: DenialDailyCap, RetryAfter: m.day.start.Add(m.day.span).Sub(now)}, nil
	}

	m.hour.granted++
	m.day.granted++
	if err := m.persist(ctx, kind); err != nil {
		m.hour.granted--
		m.day.granted--
		return nil, nil, err
	}
	return &Permit{Kind: kind, GrantedAt: now}, nil, nil
}

// ReportBlock records a suspected block signal: all permits are denied until
// the cooldown elapses, regardless of remaining quota.
func (m *Manager) ReportBlock(ctx context.Context, kind string, cooldown time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.roll(now)

	until := now.Add(cooldown)
	if until.After(m.cooldownUntil) {
		m.cooldownUntil = until
	}
	return m.persist(ctx, kind)
}

// CoolingDown reports whether a block cooldown is currently active.
func (m *Manager) CoolingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Before(m.cooldownUntil)
}

// roll resets any window whose span has elapsed.
func (m *Manager) roll(now time.Time) {
	hourStart := now.UTC().Truncate(time.Hour)
	dayStart := now.UTC().Truncate(24 * time.Hour)

	if !m.hour.start.Equal(hourStart) {
		m.hour = window{start: hourStart, span: time.Hour}
	}
	if !m.day.start.Equal(dayStart) {
		m.day = window{start: dayStart, span: 24 * time.Hour}
	}
}

// persist writes both windows. Caller holds the mutex.
func (m *Manager) persist(ctx context.Context, kind string) error {
	if m.store == nil {
		return nil
	}
	var cooldown *time.Time
	if !m.cooldownUntil.IsZero() {
		c := m.cooldownUntil
		cooldown = &c
	}
	for _, w := range []*window{&m.hour, &m.day} {
		row := &store.QuotaWindowRow{
			Kind:          rowKind(kind, w.span),
			WindowStart:   w.start,
			Granted:       w.granted,
			CooldownUntil: cooldown,
		}
		if err := m.store.SaveQuotaWindow(ctx, row); err != nil {
			return fmt.Errorf("failed to persist quota window: %w", err)
		}
	}
	return nil
}

func rowKind(kind string, span time.Duration) string {
	if span == time.Hour {
		return kind + ":hour"
	}
	return kind + ":day"
}
