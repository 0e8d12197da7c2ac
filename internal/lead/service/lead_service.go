package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/audit"
	"prospect-platform/backend/internal/db"
	devicedomain "prospect-platform/backend/internal/device/domain"
	"prospect-platform/backend/internal/lead/domain"
	leadrepo "prospect-platform/backend/internal/lead/repository"
	"prospect-platform/backend/internal/lock"
	"prospect-platform/backend/internal/notification"
	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/platform/logger"
	"prospect-platform/backend/internal/platform/metrics"
	propertydomain "prospect-platform/backend/internal/property/domain"
	"prospect-platform/backend/internal/security"
	"prospect-platform/backend/internal/telemetry"
	telemetrydomain "prospect-platform/backend/internal/telemetry/domain"
)

// Sentinel errors for the lead service; the handler maps them to envelopes.
var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrLeadExists       = errors.New("active lead already exists")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrInvalidStatus    = errors.New("invalid lead status")
)

const eventSource = "lead-service"

// LeadRepo is the lead persistence the service needs.
type LeadRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	FindActive(ctx context.Context, userID, propertyID string) (*domain.Lead, error)
	Create(ctx context.Context, l *domain.Lead) error
	ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*domain.Lead, error)
	CountByOwner(ctx context.Context, ownerUserID string) (int64, error)
	CountActiveByProperty(ctx context.Context, propertyID string) (int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Lead, error)
}

// PropertyRepo is the listing lookup the service needs.
type PropertyRepo interface {
	GetByID(ctx context.Context, id string) (*propertydomain.Property, error)
	ListByOwner(ctx context.Context, ownerUserID string, skip, limit int64) ([]*propertydomain.Property, error)
	CountByOwner(ctx context.Context, ownerUserID string) (int64, error)
	GetCandles(ctx context.Context, propertyID string) ([]propertydomain.PricePoint, error)
}

// DeviceRepo resolves the owner's device for lead notifications.
type DeviceRepo interface {
	GetByUser(ctx context.Context, userID string) (*devicedomain.Binding, error)
}

// Deps are the collaborators of LeadService. Leads, Properties and Locker are required; the rest
// default to no-ops.
type Deps struct {
	Leads      LeadRepo
	Properties PropertyRepo
	Devices    DeviceRepo
	Locker     lock.Locker
	Signer     security.URLSigner
	Publisher  notification.Publisher
	Audit      audit.AuditLogger
	Events     telemetry.EventEmitter
	Metrics    metrics.Recorder
	Runner     *background.Runner
}

// LeadService manages lead lifecycle and the owner-facing project views.
type LeadService struct {
	leads      LeadRepo
	properties PropertyRepo
	devices    DeviceRepo
	locker     lock.Locker
	signer     security.URLSigner
	publisher  notification.Publisher
	audit      audit.AuditLogger
	events     telemetry.EventEmitter
	metrics    metrics.Recorder
	runner     *background.Runner
	tracer     trace.Tracer
}

// NewLeadService returns a LeadService with the given dependencies.
func NewLeadService(d Deps) *LeadService {
	s := &LeadService{
		leads:      d.Leads,
		properties: d.Properties,
		devices:    d.Devices,
		locker:     d.Locker,
		signer:     d.Signer,
		publisher:  d.Publisher,
		audit:      d.Audit,
		events:     d.Events,
		metrics:    d.Metrics,
		runner:     d.Runner,
		tracer:     otel.Tracer("prospect/lead"),
	}
	if s.signer == nil {
		s.signer = security.PassthroughSigner{}
	}
	if s.publisher == nil {
		s.publisher = notification.Noop{}
	}
	if s.audit == nil {
		s.audit = audit.Noop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	return s
}

// ProjectSummary is one owner listing with its price movement and active lead count.
type ProjectSummary struct {
	Property    *propertydomain.Property
	LogoURL     string
	Candles     []propertydomain.PricePoint
	Change      propertydomain.PriceChange
	ActiveLeads int64
}

// ProjectPage is one page of an owner's listings. TotalCount covers all pages.
type ProjectPage struct {
	Projects   []ProjectSummary
	TotalCount int64
}

// CandleSummary is a property's price series and its overall movement.
type CandleSummary struct {
	PropertyID string
	Candles    []propertydomain.PricePoint
	Change     propertydomain.PriceChange
}

// LeadPage is one page of leads on an owner's listings.
type LeadPage struct {
	Leads      []*domain.Lead
	TotalCount int64
}

// CheckLeadExists reports whether userID has an active lead on propertyID. It takes no lock.
func (s *LeadService) CheckLeadExists(ctx context.Context, userID, propertyID string) (bool, error) {
	l, err := s.leads.FindActive(ctx, userID, propertyID)
	if err != nil {
		return false, fmt.Errorf("find active lead: %w", err)
	}
	return l != nil, nil
}

// GenerateLead creates an active lead for userID on propertyID. The existence check and insert run
// under a per-(user, property) lock; the store's partial unique index backs it up.
func (s *LeadService) GenerateLead(ctx context.Context, userID, propertyID string) (_ *domain.Lead, err error) {
	ctx, span := s.tracer.Start(ctx, "LeadService.GenerateLead", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("property.id", propertyID),
	))
	defer func() {
		if err != nil && !errors.Is(err, ErrLeadExists) && !errors.Is(err, ErrPropertyNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if prop == nil {
		return nil, ErrPropertyNotFound
	}

	lease, err := s.locker.Acquire(ctx, leadLockKey(userID, propertyID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// Another request for the same pair holds the lock and is creating the lead.
			s.conflict(ctx, userID, propertyID)
			return nil, ErrLeadExists
		}
		return nil, fmt.Errorf("acquire lead lock: %w", err)
	}
	defer s.release(ctx, lease)

	existing, err := s.leads.FindActive(ctx, userID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("find active lead: %w", err)
	}
	if existing != nil {
		s.conflict(ctx, userID, propertyID)
		return nil, ErrLeadExists
	}

	l := &domain.Lead{
		ListedByUserID: prop.ListedByUserID,
		UserID:         userID,
		PropertyID:     propertyID,
		Status:         domain.StatusActive,
	}
	if err := s.leads.Create(ctx, l); err != nil {
		if errors.Is(err, leadrepo.ErrDuplicateActive) {
			s.conflict(ctx, userID, propertyID)
			return nil, ErrLeadExists
		}
		return nil, fmt.Errorf("create lead: %w", err)
	}
	span.SetAttributes(attribute.String("lead.id", l.ID))

	s.metrics.LeadGenerated()
	meta := map[string]string{"lead_id": l.ID, "property_id": propertyID, "owner_user_id": prop.ListedByUserID}
	s.runner.Go(ctx, "audit.lead_generated", func(ctx context.Context) error {
		s.audit.LogEvent(ctx, userID, audit.ActionLeadGenerated, audit.ResourceLead, meta)
		return nil
	})
	telemetry.EmitAsync(ctx, s.runner, s.events, telemetrydomain.NewEvent(eventSource, telemetrydomain.EventLeadGenerated, userID, meta))
	s.runner.Go(ctx, "notify.lead_generated", func(ctx context.Context) error {
		return s.notifyOwner(ctx, prop, l)
	})
	return l, nil
}

func (s *LeadService) conflict(ctx context.Context, userID, propertyID string) {
	s.metrics.LeadConflict()
	telemetry.EmitAsync(ctx, s.runner, s.events, telemetrydomain.NewEvent(eventSource, telemetrydomain.EventLeadConflict, userID,
		map[string]string{"property_id": propertyID}))
}

func (s *LeadService) release(ctx context.Context, lease lock.Lease) {
	// Release even when the request context is already cancelled.
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		logger.FromContext(ctx).Warn("lead lock release failed", zap.Error(err))
	}
}

// notifyOwner pushes a "new lead" notification to the listing owner's bound device, if any.
func (s *LeadService) notifyOwner(ctx context.Context, prop *propertydomain.Property, l *domain.Lead) error {
	if s.devices == nil {
		return nil
	}
	b, err := s.devices.GetByUser(ctx, prop.ListedByUserID)
	if err != nil {
		return fmt.Errorf("get owner device: %w", err)
	}
	if b == nil || b.DeviceToken == "" {
		return nil
	}
	return s.publisher.Publish(ctx, &notification.Message{
		Kind:            notification.KindLeadGenerated,
		RecipientUserID: prop.ListedByUserID,
		DeviceToken:     b.DeviceToken,
		Title:           "New lead",
		Body:            fmt.Sprintf("Someone is interested in %s", prop.Title),
		Data: map[string]string{
			"lead_id":     l.ID,
			"property_id": l.PropertyID,
		},
	})
}

// ListProjectsWithLeadsSummary returns one page of the owner's listings with price movement,
// signed logo URL and active lead count per listing.
func (s *LeadService) ListProjectsWithLeadsSummary(ctx context.Context, ownerUserID string, page, perPage int) (*ProjectPage, error) {
	skip, limit := db.PageWindow(page, perPage)
	props, err := s.properties.ListByOwner(ctx, ownerUserID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	out := &ProjectPage{Projects: make([]ProjectSummary, 0, len(props))}
	for _, p := range props {
		candles, err := s.properties.GetCandles(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("get candles for %s: %w", p.ID, err)
		}
		logo, err := s.signLogo(p.Logo)
		if err != nil {
			return nil, fmt.Errorf("sign logo for %s: %w", p.ID, err)
		}
		active, err := s.leads.CountActiveByProperty(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("count leads for %s: %w", p.ID, err)
		}
		out.Projects = append(out.Projects, ProjectSummary{
			Property:    p,
			LogoURL:     logo,
			Candles:     candles,
			Change:      propertydomain.Summarize(candles),
			ActiveLeads: active,
		})
	}
	total, err := s.properties.CountByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("count properties: %w", err)
	}
	out.TotalCount = total
	return out, nil
}

func (s *LeadService) signLogo(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return s.signer.Sign(key)
}

// GetCandles returns the property's price series and movement.
func (s *LeadService) GetCandles(ctx context.Context, propertyID string) (*CandleSummary, error) {
	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if prop == nil {
		return nil, ErrPropertyNotFound
	}
	candles, err := s.properties.GetCandles(ctx, prop.ID)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	return &CandleSummary{PropertyID: prop.ID, Candles: candles, Change: propertydomain.Summarize(candles)}, nil
}

// ListLeads returns one page of leads on the owner's listings, newest first.
func (s *LeadService) ListLeads(ctx context.Context, ownerUserID string, page, perPage int) (*LeadPage, error) {
	skip, limit := db.PageWindow(page, perPage)
	leads, err := s.leads.ListByOwner(ctx, ownerUserID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	total, err := s.leads.CountByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	if leads == nil {
		leads = []*domain.Lead{}
	}
	return &LeadPage{Leads: leads, TotalCount: total}, nil
}

// GetLead returns the lead when ownerUserID owns the listing it is on; otherwise ErrLeadNotFound.
func (s *LeadService) GetLead(ctx context.Context, ownerUserID, leadID string) (*domain.Lead, error) {
	l, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if l == nil || l.ListedByUserID != ownerUserID {
		return nil, ErrLeadNotFound
	}
	return l, nil
}

// ChangeLeadStatus moves an owner's lead to status. Re-activating is refused while the requester
// has another active lead on the same property.
func (s *LeadService) ChangeLeadStatus(ctx context.Context, ownerUserID, leadID, status string) (*domain.Lead, error) {
	next := domain.Status(status)
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}
	l, err := s.GetLead(ctx, ownerUserID, leadID)
	if err != nil {
		return nil, err
	}
	if l.Status == next {
		return l, nil
	}

	if next == domain.StatusActive {
		lease, err := s.locker.Acquire(ctx, leadLockKey(l.UserID, l.PropertyID))
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				return nil, ErrLeadExists
			}
			return nil, fmt.Errorf("acquire lead lock: %w", err)
		}
		defer s.release(ctx, lease)
		other, err := s.leads.FindActive(ctx, l.UserID, l.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("find active lead: %w", err)
		}
		if other != nil && other.ID != l.ID {
			return nil, ErrLeadExists
		}
	}

	updated, err := s.leads.UpdateStatus(ctx, l.ID, next)
	if err != nil {
		if errors.Is(err, leadrepo.ErrDuplicateActive) {
			return nil, ErrLeadExists
		}
		return nil, fmt.Errorf("update lead status: %w", err)
	}
	if updated == nil {
		return nil, ErrLeadNotFound
	}

	meta := map[string]string{"lead_id": l.ID, "from": string(l.Status), "to": string(next)}
	s.runner.Go(ctx, "audit.lead_status_changed", func(ctx context.Context) error {
		s.audit.LogEvent(ctx, ownerUserID, audit.ActionLeadStatusChanged, audit.ResourceLead, meta)
		return nil
	})
	telemetry.EmitAsync(ctx, s.runner, s.events, telemetrydomain.NewEvent(eventSource, telemetrydomain.EventLeadStatus, ownerUserID, meta))
	return updated, nil
}

func leadLockKey(userID, propertyID string) string {
	return "lead:" + userID + ":" + propertyID
}
