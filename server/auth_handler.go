package server

import (
	"context"
	"net/http"
	"strings"

	"Bpsb/logger"
	"Bpsb/model"
)

type ctxKey string

const usernameCtxKey ctxKey = "username"

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  *model.Account `json:"user"`
}

// SignupHandler handles account creation and logs the new account in.
func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Warn("[Signup] 解析请求体失败", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := h.accounts.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	h.respondWithToken(w, http.StatusCreated, acc)
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Warn("[Login] 解析请求体失败", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	acc, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	h.respondWithToken(w, http.StatusOK, acc)
}

func (h *APIHandler) respondWithToken(w http.ResponseWriter, status int, acc *model.Account) {
	token, err := h.tokens.GenerateToken(acc.Username)
	if err != nil {
		logger.Error("生成Token失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: acc})
}

// LogoutHandler 清除当前会话
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context()); err != nil {
		logger.Error("[Logout] 清除会话失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// MeHandler returns the active account.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.accounts.Current()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// UpdateProfileHandler merges the body into the active account.
func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req model.ProfileUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := h.accounts.UpdateProfile(r.Context(), req)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// AuthMiddleware requires a valid bearer token naming the active session.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		username, err := h.tokens.ParseToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		// 单实例只有一个活动会话，令牌必须属于它
		acc, ok := h.accounts.Current()
		if !ok || acc.Username != username {
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		ctx := context.WithValue(r.Context(), usernameCtxKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
