package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dixon2004/audio-transcriber/internal/api/middleware"
	"github.com/dixon2004/audio-transcriber/internal/auth"
)

type AuthHandler struct {
	jwt           *auth.JWTService
	adminUsername string
	adminHash     string // bcrypt hash of the admin password
}

func NewAuthHandler(jwt *auth.JWTService, adminUsername, adminHash string) *AuthHandler {
	return &AuthHandler{jwt: jwt, adminUsername: adminUsername, adminHash: adminHash}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username != h.adminUsername || !auth.CheckPassword(req.Password, h.adminHash) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(req.Username)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, loginResponse{Token: token, Username: req.Username}, http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"username": claims.Username,
	}, http.StatusOK)
}
