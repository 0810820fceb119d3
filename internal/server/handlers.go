package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"design-assistant/internal/models"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeValidated(w, r, signupSchema, &req) {
		return
	}

	user, err := s.auth.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValidated(w, r, loginSchema, &req) {
		return
	}

	token, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// handleCreateDesign runs the submission pipeline. Advanced requests return
// 202 with a queue acknowledgment; everything else returns the finished
// artifact.
func (s *Server) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	var req models.DesignRequest
	if !decodeValidated(w, r, designRequestSchema, &req) {
		return
	}

	artifact, err := s.designs.Submit(r.Context(), &req, identityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if artifact.ID == 0 {
		status = http.StatusAccepted
	}
	writeJSON(w, status, artifact)
}

func (s *Server) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "design id must be numeric", Code: "INVALID_REQUEST"})
		return
	}

	artifact, err := s.designs.Get(r.Context(), id, identityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.designs.List(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (s *Server) handleListDesignsByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user id must be numeric", Code: "INVALID_REQUEST"})
		return
	}

	artifacts, err := s.designs.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (s *Server) handleSearchDesigns(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "search is not enabled", Code: "SEARCH_DISABLED"})
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter q is required", Code: "INVALID_REQUEST"})
		return
	}

	user, err := s.designs.ResolveIdentity(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	hits, err := s.indexer.Search(r.Context(), user.ID, query, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
