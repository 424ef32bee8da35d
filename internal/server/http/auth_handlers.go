package httpserver

import (
	"net/http"
	"time"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupResponse struct {
	UserID string `json:"userId"`
}

type loginResponse struct {
	UserID      string    `json:"userId"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	id, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, signupResponse{UserID: id.String()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	tok, u, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:      u.ID.String(),
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt,
	})
}
