package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusradar/campusradar/internal/metrics"
	"github.com/campusradar/campusradar/internal/models"
	"github.com/campusradar/campusradar/pkg/store"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=Student Professor Organiser"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type preferencesRequest struct {
	Gender     string   `json:"gender"`
	Role       string   `json:"role"`
	Department string   `json:"department"`
	Year       int      `json:"year" validate:"gte=0,lte=10"`
	Interests  []string `json:"interests" validate:"max=20"`
	PastEvents []string `json:"past_events" validate:"max=100"`
}

type ingestRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body" validate:"required"`
	Source  string `json:"source"`
}

func (s *Server) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.users.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if errors.Is(err, store.ErrUserExists) {
		writeError(w, http.StatusConflict, "username is taken")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("register failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := s.users.GetUser(r.Context(), req.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("user lookup failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.issueToken(req.Username, user.Role)
	if err != nil {
		s.logger.Error().Err(err).Msg("token signing failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	prefs, err := s.users.GetPreferences(r.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no preferences set")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("preferences lookup failed")
		writeError(w, http.StatusInternalServerError, "preferences lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req preferencesRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs := models.Preferences{
		Username:   claims.Subject,
		Gender:     req.Gender,
		Role:       req.Role,
		Department: req.Department,
		Year:       req.Year,
		Interests:  req.Interests,
		PastEvents: req.PastEvents,
	}

	if err := s.users.UpsertPreferences(r.Context(), prefs); err != nil {
		s.logger.Error().Err(err).Msg("preferences upsert failed")
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

func filterFromQuery(r *http.Request) models.SearchFilter {
	q := r.URL.Query()
	return models.SearchFilter{
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Category: q.Get("category"),
	}
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	prefs, err := s.users.GetPreferences(r.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "set preferences before requesting recommendations")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("preferences lookup failed")
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	start := time.Now()
	events, err := s.recommender.Recommend(r.Context(), prefs, filterFromQuery(r))
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error().Err(err).Msg("recommendation failed")
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	if events == nil {
		events = []models.ScoredEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	events, err := s.events.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("event listing failed")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// handleIngest accepts raw announcement text from organisers and runs the
// extraction pipeline over it synchronously.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims.Role != "Organiser" {
		writeError(w, http.StatusForbidden, "organiser role required")
		return
	}

	var req ingestRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ann := models.Announcement{
		ID:         uuid.NewString(),
		Source:     req.Source,
		Subject:    req.Subject,
		Body:       req.Body,
		ReceivedAt: time.Now(),
	}
	if ann.Source == "" {
		ann.Source = "api:" + claims.Subject
	}

	stats, err := s.ingestor.Run(r.Context(), []models.Announcement{ann}, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("ingest failed")
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	writeJSON(w, http.StatusAccepted, stats)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims.Role != "Organiser" {
		writeError(w, http.StatusForbidden, "organiser role required")
		return
	}

	id := chi.URLParam(r, "id")
	err := s.events.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("event delete failed")
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
