// Package handler serves the session endpoints: login, token refresh and secure PIN verification.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	devicedomain "prospect-platform/backend/internal/device/domain"
	"prospect-platform/backend/internal/identity/service"
	"prospect-platform/backend/internal/platform/response"
	userdomain "prospect-platform/backend/internal/user/domain"
)

// Handler serves the /auth routes.
type Handler struct {
	auth     *service.AuthService
	validate *validator.Validate
}

// NewHandler returns an auth HTTP handler backed by auth.
func NewHandler(auth *service.AuthService) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{auth: auth, validate: v}
}

type loginRequest struct {
	MobileNumber  string               `json:"mobile_number" validate:"required,min=6,max=20"`
	Password      string               `json:"password" validate:"required"`
	DeviceDetails devicedomain.Details `json:"device_details"`
}

type verifyPINRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required,min=6,max=20"`
	SecurePIN    string `json:"secure_pin" validate:"required,numeric,min=4,max=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionResponse struct {
	AccessToken      string             `json:"access_token"`
	RefreshToken     string             `json:"refresh_token"`
	TokenType        string             `json:"token_type"`
	ExpiresAt        time.Time          `json:"expires_at"`
	RefreshExpiresAt time.Time          `json:"refresh_expires_at"`
	User             userdomain.Profile `json:"user"`
	Permissions      []string           `json:"permissions"`
}

func toSessionResponse(res *service.AuthResult) sessionResponse {
	return sessionResponse{
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		TokenType:        "bearer",
		ExpiresAt:        res.Tokens.AccessExpiresAt,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		User:             res.User,
		Permissions:      res.Permissions,
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.MobileNumber, req.Password, req.DeviceDetails)
	if err != nil {
		h.writeAuthError(w, r, "login", err)
		return
	}
	response.Success(w, http.StatusAccepted, toSessionResponse(res))
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.bind(w, r, &req) {
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeAuthError(w, r, "refresh token", err)
		return
	}
	response.Success(w, http.StatusAccepted, toSessionResponse(res))
}

// VerifySecurePIN handles POST /auth/verify-secure-pin.
func (h *Handler) VerifySecurePIN(w http.ResponseWriter, r *http.Request) {
	var req verifyPINRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.auth.VerifySecurePIN(r.Context(), req.MobileNumber, req.SecurePIN); err != nil {
		h.writeAuthError(w, r, "verify secure pin", err)
		return
	}
	response.SuccessMessage(w, http.StatusAccepted, "secure pin verified")
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := response.Decode(r, dst); err != nil {
		response.Failure(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		response.Failure(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.Failure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrSecurePINMismatch):
		response.Failure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Failure(w, http.StatusUnauthorized, err.Error())
	default:
		response.Internal(w, r, op, err)
	}
}

// validationMessage names each failing field by its JSON name.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" is "+describe(fe))
	}
	return strings.Join(parts, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "numeric":
		return "not numeric"
	case "min":
		return "shorter than " + fe.Param()
	case "max":
		return "longer than " + fe.Param()
	}
	return "invalid"
}
