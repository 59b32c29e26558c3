package handlers

import (
	"net/http"

	"github.com/diewo77/paintms/internal/auth"
	"github.com/diewo77/paintms/internal/httpx"
	"github.com/diewo77/paintms/internal/services"
	"github.com/sirupsen/logrus"
)

type loginRequest struct {
	// Login is a username or an email.
	Login    string `json:"login" validate:"required_without=Email,max=255"`
	Email    string `json:"email" validate:"max=255"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type profileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,max=255"`
	Username *string `json:"username" validate:"omitempty,max=100"`
}

type AuthHandler struct {
	responder
	users    *services.UserService
	activity *services.ActivityService
	tokens   *auth.Tokens
}

func NewAuthHandler(users *services.UserService, activity *services.ActivityService, tokens *auth.Tokens, log logrus.FieldLogger, dev bool) *AuthHandler {
	return &AuthHandler{responder: responder{log: log, dev: dev}, users: users, activity: activity, tokens: tokens}
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	login := req.Login
	if login == "" {
		login = req.Email
	}
	user, err := h.users.Login(r.Context(), login, req.Password, requestMeta(r))
	if err != nil {
		h.fail(w, r, "handlers.auth", "Login", err)
		return
	}
	token, expires, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.fail(w, r, "handlers.auth", "Login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		h.fail(w, r, "handlers.auth", "Me", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.users.ChangePassword(r.Context(), uid, req.CurrentPassword, req.NewPassword, requestMeta(r)); err != nil {
		h.fail(w, r, "handlers.auth", "ChangePassword", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Mot de passe modifié avec succès"})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.UpdateProfile(r.Context(), uid, services.ProfilePatch{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
	}, requestMeta(r))
	if err != nil {
		h.fail(w, r, "handlers.auth", "UpdateProfile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Logs pages through the caller's audit trail. all=true lists every user.
func (h *AuthHandler) Logs(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if r.URL.Query().Get("all") == "true" {
		uid = 0
	}
	page, err := h.activity.List(r.Context(), uid, httpx.QueryInt(r, "page", 1, 0), httpx.QueryInt(r, "limit", 50, 200))
	if err != nil {
		h.fail(w, r, "handlers.auth", "Logs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}
