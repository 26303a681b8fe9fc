package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

type userLedger interface {
	Register(username, email, password string, isAdmin bool) (*domain.Registration, error)
	Authenticate(username, password string) (*domain.User, error)
	User(id int64) (*domain.User, error)
	ChangePassword(userID int64, oldPassword, newPassword string) error
	ResetPassword(username, email string) error
	Revoke(tokenID string, until time.Time)
}

type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	users  userLedger
	tokens TokenConfig
}

func NewAuthHandler(users userLedger, tokens TokenConfig) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

type registerResponse struct {
	Message       string `json:"message"`
	UserID        int64  `json:"user_id"`
	AccountID     int64  `json:"account_id"`
	AccountNumber string `json:"account_number"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		RespondAppError(w, ErrCredentialsRequired)
		return
	}

	reg, err := h.users.Register(req.Username, req.Email, req.Password, req.IsAdmin)
	if err != nil {
		logging.FromContext(r.Context()).Info("registration rejected", "username", req.Username, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, registerResponse{
		Message:       reg.Message,
		UserID:        reg.UserID,
		AccountID:     reg.AccountID,
		AccountNumber: reg.AccountNumber,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message      string  `json:"message"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         userDTO `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		RespondAppError(w, ErrCredentialsRequired)
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	access, err := auth.GenerateToken(user.ID, user.Username, auth.KindAccess, h.tokens.Secret, h.tokens.AccessTTL)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to issue access token", "error", err)
		RespondAppError(w, ErrInternalError)
		return
	}
	refresh, err := auth.GenerateToken(user.ID, user.Username, auth.KindRefresh, h.tokens.Secret, h.tokens.RefreshTTL)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to issue refresh token", "error", err)
		RespondAppError(w, ErrInternalError)
		return
	}

	RespondJSON(w, http.StatusOK, loginResponse{
		Message:      "Login successful",
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserDTO(user),
	})
}

// Refresh expects the refresh token in the Authorization header.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	access, err := auth.GenerateToken(claims.UserID, claims.Username, auth.KindAccess, h.tokens.Secret, h.tokens.AccessTTL)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to issue access token", "error", err)
		RespondAppError(w, ErrInternalError)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	user, err := h.users.User(userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]userDTO{"user": toUserDTO(user)})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		RespondAppError(w, ErrPasswordsRequired)
		return
	}

	if err := h.users.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondMessage(w, http.StatusOK, "Password changed successfully")
}

type resetPasswordRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		RespondAppError(w, ErrUsernameRequired)
		return
	}

	if err := h.users.ResetPassword(req.Username, req.Email); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondMessage(w, http.StatusOK, "Password reset instructions sent to your email")
}

// Logout revokes the presented access token for the rest of its lifetime.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}
	h.users.Revoke(claims.ID, claims.ExpiresAt)
	RespondMessage(w, http.StatusOK, "Logged out successfully")
}
