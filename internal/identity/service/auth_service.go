package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prospect-platform/backend/internal/audit"
	devicedomain "prospect-platform/backend/internal/device/domain"
	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/platform/metrics"
	"prospect-platform/backend/internal/platform/rbac"
	"prospect-platform/backend/internal/security"
	"prospect-platform/backend/internal/telemetry"
	telemetrydomain "prospect-platform/backend/internal/telemetry/domain"
	userdomain "prospect-platform/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to envelopes.
var (
	ErrUserNotFound        = errors.New("mobile number not registered")
	ErrUserInactive        = errors.New("user is inactive")
	ErrPasswordMismatch    = errors.New("password does not match")
	ErrSecurePINMismatch   = errors.New("secure pin does not match")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

const eventSource = "auth-service"

// Login outcomes recorded on the login counter.
const (
	outcomeSuccess     = "success"
	outcomeNotFound    = "not_found"
	outcomeInactive    = "inactive"
	outcomeBadPassword = "bad_password"
	outcomeError       = "error"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByMobile(ctx context.Context, mobileNumber string) (*userdomain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// DeviceRepo is the minimal device binding repository needed by the auth service.
type DeviceRepo interface {
	Upsert(ctx context.Context, b *devicedomain.Binding) (*devicedomain.Binding, error)
}

// Deps are the collaborators of AuthService. Users, Devices, Hasher and Tokens are required.
type Deps struct {
	Users   UserRepo
	Devices DeviceRepo
	Hasher  *security.Hasher
	Tokens  *security.TokenProvider
	Audit   audit.AuditLogger
	Events  telemetry.EventEmitter
	Metrics metrics.Recorder
	Runner  *background.Runner
}

// AuthResult is the outcome of Login and Refresh.
type AuthResult struct {
	Tokens      *security.TokenPair
	User        userdomain.Profile
	Permissions []string
}

// AuthService issues stateless token pairs and verifies secure PINs.
type AuthService struct {
	users   UserRepo
	devices DeviceRepo
	hasher  *security.Hasher
	tokens  *security.TokenProvider
	audit   audit.AuditLogger
	events  telemetry.EventEmitter
	metrics metrics.Recorder
	runner  *background.Runner
	tracer  trace.Tracer
	now     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(d Deps) *AuthService {
	s := &AuthService{
		users:   d.Users,
		devices: d.Devices,
		hasher:  d.Hasher,
		tokens:  d.Tokens,
		audit:   d.Audit,
		events:  d.Events,
		metrics: d.Metrics,
		runner:  d.Runner,
		tracer:  otel.Tracer("prospect/identity"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if s.audit == nil {
		s.audit = audit.Noop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	return s
}

// Login checks the mobile number and password and returns a token pair, the client-safe profile and
// the permission set for the user's type. Customer and partner logins also bind the reported device.
func (s *AuthService) Login(ctx context.Context, mobileNumber, password string, device devicedomain.Details) (_ *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() {
		if err != nil && !isClientError(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	mobileNumber = strings.TrimSpace(mobileNumber)
	user, err := s.users.GetByMobile(ctx, mobileNumber)
	if err != nil {
		s.metrics.LoginAttempt(outcomeError)
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		s.loginFailed(ctx, "", outcomeNotFound)
		return nil, ErrUserNotFound
	}
	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("user.type", string(user.UserType)))
	if !user.IsActive {
		s.loginFailed(ctx, user.ID, outcomeInactive)
		return nil, ErrUserInactive
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			s.loginFailed(ctx, user.ID, outcomeBadPassword)
			return nil, ErrPasswordMismatch
		}
		s.metrics.LoginAttempt(outcomeError)
		return nil, fmt.Errorf("compare password: %w", err)
	}

	pair, err := s.tokens.IssuePair(subjectOf(user))
	if err != nil {
		s.metrics.LoginAttempt(outcomeError)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if user.UserType.BindsDevice() && !device.Empty() {
		_, err := s.devices.Upsert(ctx, &devicedomain.Binding{
			UserID:      user.ID,
			DeviceToken: strings.TrimSpace(device.DeviceToken),
			DeviceID:    strings.TrimSpace(device.DeviceID),
			UpdatedAt:   s.now(),
		})
		if err != nil {
			s.metrics.LoginAttempt(outcomeError)
			return nil, fmt.Errorf("bind device: %w", err)
		}
	}

	loginAt := s.now()
	userID := user.ID
	s.runner.Go(ctx, "user.last_login", func(ctx context.Context) error {
		return s.users.UpdateLastLogin(ctx, userID, loginAt)
	})
	s.metrics.LoginAttempt(outcomeSuccess)
	meta := map[string]string{"user_type": string(user.UserType)}
	s.runner.Go(ctx, "audit.login_success", func(ctx context.Context) error {
		s.audit.LogEvent(ctx, userID, audit.ActionLoginSuccess, audit.ResourceSession, meta)
		return nil
	})
	telemetry.EmitAsync(ctx, s.runner, s.events, telemetrydomain.NewEvent(eventSource, telemetrydomain.EventLogin, userID, meta))

	return &AuthResult{
		Tokens:      pair,
		User:        user.Sanitize(),
		Permissions: rbac.PermissionsFor(string(user.UserType)),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, outcome string) {
	s.metrics.LoginAttempt(outcome)
	meta := map[string]string{"reason": outcome}
	s.runner.Go(ctx, "audit.login_failure", func(ctx context.Context) error {
		s.audit.LogEvent(ctx, userID, audit.ActionLoginFailure, audit.ResourceSession, meta)
		return nil
	})
	telemetry.EmitAsync(ctx, s.runner, s.events, telemetrydomain.NewEvent(eventSource, telemetrydomain.EventLoginFailed, userID, meta))
}

// VerifySecurePIN checks code against the PIN stored for mobileNumber.
func (s *AuthService) VerifySecurePIN(ctx context.Context, mobileNumber, code string) error {
	user, err := s.users.GetByMobile(ctx, strings.TrimSpace(mobileNumber))
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !security.SecurePINEqual(user.SecurePIN, code) {
		s.runner.Go(ctx, "audit.pin_failure", func(ctx context.Context) error {
			s.audit.LogEvent(ctx, user.ID, audit.ActionPINFailure, audit.ResourceUser, nil)
			return nil
		})
		return ErrSecurePINMismatch
	}
	s.runner.Go(ctx, "audit.pin_verified", func(ctx context.Context) error {
		s.audit.LogEvent(ctx, user.ID, audit.ActionPINVerified, audit.ResourceUser, nil)
		return nil
	})
	telemetry.EmitAsync(ctx, s.runner, s.events, telemetrydomain.NewEvent(eventSource, telemetrydomain.EventPINVerified, user.ID, nil))
	return nil
}

// Refresh validates refreshToken and issues a new pair for the same subject. No server-side state
// is kept; a user deactivated since the token was issued is refused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidRefreshToken
	}
	sub, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidRefreshToken
	}
	pair, err := s.tokens.IssuePair(sub)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	s.runner.Go(ctx, "audit.token_refreshed", func(ctx context.Context) error {
		s.audit.LogEvent(ctx, sub.UserID, audit.ActionTokenRefreshed, audit.ResourceSession, nil)
		return nil
	})
	return &AuthResult{
		Tokens:      pair,
		User:        user.Sanitize(),
		Permissions: rbac.PermissionsFor(sub.UserType),
	}, nil
}

func subjectOf(u *userdomain.User) security.Subject {
	return security.Subject{UserID: u.ID, Email: u.Email, UserType: string(u.UserType)}
}

func isClientError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserInactive) || errors.Is(err, ErrPasswordMismatch)
}
