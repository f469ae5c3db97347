package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"fabtrack/internal/core/domain"
	"fabtrack/internal/core/services"
	"fabtrack/pkg/logging"
	"fabtrack/pkg/middleware"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *services.TokenService
}

func NewAuthHandler(users *services.UserService, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.ErrorContext(r.Context(), "login failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := h.tokens.GenerateToken(user.ID.String(), user.Name)
	if err != nil {
		log.ErrorContext(r.Context(), "token generation failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	var resp loginResponse
	resp.Token = token
	resp.User.ID = user.ID.String()
	resp.User.Name = user.Name
	resp.User.Role = user.Role
	writeJSON(w, http.StatusOK, resp)
}

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Me returns the profile behind the presented credential. Tokens outlive
// accounts, so a valid token for a deleted user yields 404.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := uuid.Parse(identity.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.ErrorContext(r.Context(), "user lookup failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "user lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:   user.ID.String(),
		Name: user.Name,
		Role: user.Role,
	})
}
