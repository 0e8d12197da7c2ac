// Package leadtest provides in-memory stores for lead tests.
package leadtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	devicedomain "prospect-platform/backend/internal/device/domain"
	"prospect-platform/backend/internal/lead/domain"
	leadrepo "prospect-platform/backend/internal/lead/repository"
	"prospect-platform/backend/internal/notification"
	propertydomain "prospect-platform/backend/internal/property/domain"
)

// Leads is an in-memory lead store that enforces one active lead per (user, property)
// the way the store's partial unique index does.
type Leads struct {
	mu      sync.Mutex
	byID    map[string]*domain.Lead
	order   []string
	seq     int
	Creates int
	Err     error
}

// NewLeads returns an empty store.
func NewLeads() *Leads {
	return &Leads{byID: make(map[string]*domain.Lead)}
}

func (m *Leads) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if l, ok := m.byID[id]; ok {
		c := *l
		return &c, nil
	}
	return nil, nil
}

func (m *Leads) FindActive(ctx context.Context, userID, propertyID string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.activeLocked(userID, propertyID), nil
}

func (m *Leads) activeLocked(userID, propertyID string) *domain.Lead {
	for _, l := range m.byID {
		if l.UserID == userID && l.PropertyID == propertyID && l.Status == domain.StatusActive {
			c := *l
			return &c
		}
	}
	return nil
}

func (m *Leads) Create(ctx context.Context, l *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if l.Status == domain.StatusActive && m.activeLocked(l.UserID, l.PropertyID) != nil {
		return leadrepo.ErrDuplicateActive
	}
	m.seq++
	l.ID = fmt.Sprintf("%024x", m.seq)
	now := time.Now().UTC().Add(time.Duration(m.seq) * time.Millisecond)
	l.CreatedAt, l.UpdatedAt = now, now
	c := *l
	m.byID[l.ID] = &c
	m.order = append(m.order, l.ID)
	m.Creates++
	return nil
}

func (m *Leads) ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*domain.Lead
	for i := len(m.order) - 1; i >= 0; i-- {
		l := m.byID[m.order[i]]
		if l.ListedByUserID == ownerUserID {
			c := *l
			all = append(all, &c)
		}
	}
	return window(all, skip, limit), nil
}

func (m *Leads) CountByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.byID {
		if l.ListedByUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func (m *Leads) CountActiveByProperty(ctx context.Context, propertyID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.byID {
		if l.PropertyID == propertyID && l.Status == domain.StatusActive {
			n++
		}
	}
	return n, nil
}

func (m *Leads) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if status == domain.StatusActive {
		if other := m.activeLocked(l.UserID, l.PropertyID); other != nil && other.ID != id {
			return nil, leadrepo.ErrDuplicateActive
		}
	}
	l.Status = status
	l.UpdatedAt = time.Now().UTC()
	c := *l
	return &c, nil
}

// Count returns the number of stored leads.
func (m *Leads) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Properties is an in-memory listing store.
type Properties struct {
	mu      sync.Mutex
	props   []*propertydomain.Property
	candles map[string][]propertydomain.PricePoint
}

// NewProperties returns an empty store.
func NewProperties() *Properties {
	return &Properties{candles: make(map[string][]propertydomain.PricePoint)}
}

// Add stores p, assigning an id when empty, and returns the id.
func (m *Properties) Add(p *propertydomain.Property) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("%024x", len(m.props)+1000)
	}
	m.props = append(m.props, p)
	return p.ID
}

// SetCandles stores prices for propertyID at hourly intervals.
func (m *Properties) SetCandles(propertyID string, prices ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]propertydomain.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = propertydomain.PricePoint{Price: decimal.NewFromInt(p), Timestamp: start.Add(time.Duration(i) * time.Hour)}
	}
	m.candles[propertyID] = pts
}

func (m *Properties) GetByID(ctx context.Context, id string) (*propertydomain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.props {
		if p.ID == id {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Properties) ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*propertydomain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*propertydomain.Property
	for _, p := range m.props {
		if p.ListedByUserID == ownerUserID {
			c := *p
			all = append(all, &c)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, skip, limit), nil
}

func (m *Properties) CountByOwner(ctx context.Context, ownerUserID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.props {
		if p.ListedByUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func (m *Properties) GetCandles(ctx context.Context, propertyID string) ([]propertydomain.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candles[propertyID], nil
}

// Devices is an in-memory device binding lookup.
type Devices struct {
	mu       sync.Mutex
	bindings map[string]*devicedomain.Binding
}

// NewDevices returns an empty lookup.
func NewDevices() *Devices {
	return &Devices{bindings: make(map[string]*devicedomain.Binding)}
}

// Bind records a binding for userID.
func (m *Devices) Bind(userID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[userID] = &devicedomain.Binding{UserID: userID, DeviceToken: token, DeviceID: "dev-" + userID}
}

func (m *Devices) GetByUser(ctx context.Context, userID string) (*devicedomain.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings[userID], nil
}

// Publisher records published notifications.
type Publisher struct {
	mu       sync.Mutex
	Messages []*notification.Message
}

func (p *Publisher) Publish(ctx context.Context, msg *notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, msg)
	return nil
}

// Sent returns a copy of the published messages.
func (p *Publisher) Sent() []*notification.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*notification.Message(nil), p.Messages...)
}

func window[T any](all []T, skip, limit int64) []T {
	if skip >= int64(len(all)) {
		return nil
	}
	end := skip + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[skip:end]
}
