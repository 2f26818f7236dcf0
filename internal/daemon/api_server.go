package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadence/internal/api"
	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/program"
	"cadence/internal/services"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.auth(srv.handleStatus))
	mux.HandleFunc("GET /api/clients", srv.auth(srv.handleListClients))
	mux.HandleFunc("POST /api/clients", srv.auth(srv.handleCreateClient))
	mux.HandleFunc("GET /api/clients/{id}/progress", srv.auth(srv.handleProgress))
	mux.HandleFunc("POST /api/clients/{id}/stages/{stage}/unlock", srv.auth(srv.handleUnlockStage))
	mux.HandleFunc("POST /api/clients/{id}/stages/{stage}/generate", srv.auth(srv.handleGenerateStage))
	mux.HandleFunc("POST /api/clients/{id}/stages/{stage}/documents/{slot}/generate", srv.auth(srv.handleGenerateDocument))
	mux.HandleFunc("POST /api/clients/{id}/stages/{stage}/documents/{slot}/status", srv.auth(srv.handleDocumentStatus))
	mux.HandleFunc("POST /api/clients/{id}/stages/{stage}/documents/{slot}/revise", srv.auth(srv.handleRequestRevision))
	mux.HandleFunc("POST /api/clients/{id}/stages/{stage}/documents/{slot}/approve", srv.auth(srv.handleApprove))
	mux.HandleFunc("GET /api/clients/{id}/scores/health", srv.auth(srv.handleHealthScore))
	mux.HandleFunc("GET /api/clients/{id}/scores/readiness", srv.auth(srv.handleReadinessScore))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// auth validates bearer tokens, stamps the request context with a
// correlation ID and the client and stage path parameters, and emits the
// request log line. An empty configured token disables the auth check.
func (s *apiServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
				s.writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
		}

		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		if id := r.PathValue("id"); id != "" {
			ctx = services.WithClientID(ctx, id)
		}
		if raw := r.PathValue("stage"); raw != "" {
			if stage, err := strconv.Atoi(raw); err == nil {
				ctx = services.WithStage(ctx, stage)
			}
		}
		r = r.WithContext(ctx)
		logging.WithContext(ctx, s.log()).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
		next(w, r)
	}
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"running":      status.Running,
		"dbPath":       status.DBPath,
		"lockFilePath": status.LockFilePath,
		"bindAddress":  status.BindAddress,
		"provider":     status.Provider,
		"webhooks":     status.Webhooks,
	})
}

func (s *apiServer) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.daemon.store.ListClients(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]api.ClientView, 0, len(clients))
	for _, client := range clients {
		views = append(views, api.FromClient(client))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"clients": views})
}

func (s *apiServer) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Niche           string `json:"niche"`
		Audience        string `json:"audience"`
		Goals           string `json:"goals"`
		BusinessSummary string `json:"businessSummary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	client := &program.Client{
		Name:            body.Name,
		Email:           body.Email,
		Niche:           body.Niche,
		Audience:        body.Audience,
		Goals:           body.Goals,
		BusinessSummary: body.BusinessSummary,
	}
	if err := s.daemon.store.CreateClient(r.Context(), client); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromClient(client))
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	response, err := s.daemon.service.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *apiServer) handleUnlockStage(w http.ResponseWriter, r *http.Request) {
	stage, ok := s.stageParam(w, r)
	if !ok {
		return
	}
	if err := s.daemon.service.UnlockStage(r.Context(), r.PathValue("id"), stage); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"stage": stage, "status": string(program.StageActive)})
}

func (s *apiServer) handleGenerateStage(w http.ResponseWriter, r *http.Request) {
	stage, ok := s.stageParam(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.service.GenerateStage(r.Context(), r.PathValue("id"), stage)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	stage, slot, ok := s.slotParams(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.service.GenerateDocument(r.Context(), r.PathValue("id"), stage, slot)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	stage, slot, ok := s.slotParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	view, err := s.daemon.service.SetDocumentStatus(r.Context(), r.PathValue("id"), stage, slot, body.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleRequestRevision(w http.ResponseWriter, r *http.Request) {
	stage, slot, ok := s.slotParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	view, err := s.daemon.service.RequestRevision(r.Context(), r.PathValue("id"), stage, slot, body.Notes)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	stage, slot, ok := s.slotParams(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.service.ApproveDocument(r.Context(), r.PathValue("id"), stage, slot)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.service.HealthScore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleReadinessScore(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.service.LaunchReadiness(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) stageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	stage, err := strconv.Atoi(r.PathValue("stage"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid stage %q", r.PathValue("stage")))
		return 0, false
	}
	return stage, true
}

func (s *apiServer) slotParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	stage, ok := s.stageParam(w, r)
	if !ok {
		return 0, 0, false
	}
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid slot %q", r.PathValue("slot")))
		return 0, 0, false
	}
	return stage, slot, true
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrStageLocked), errors.Is(err, services.ErrConflict):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, services.ErrTimeout):
		s.writeError(w, http.StatusGatewayTimeout, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
