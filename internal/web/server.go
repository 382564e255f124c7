// Package web exposes the guidance service over HTTP: the chat endpoints,
// the catalog read API, admin refresh, health and metrics.
package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vagledaren/vagledaren/internal/catalog"
	"github.com/vagledaren/vagledaren/internal/chat"
	"github.com/vagledaren/vagledaren/internal/config"
	"github.com/vagledaren/vagledaren/internal/fault"
	"github.com/vagledaren/vagledaren/internal/generate"
)

// GuidanceService is the part of the guidance core the server needs.
type GuidanceService interface {
	GetGuidance(ctx context.Context, message string, history []chat.Message, profile *chat.Profile) (string, error)
	GetGuidanceStream(ctx context.Context, message string, history []chat.Message, profile *chat.Profile) (*generate.Stream, error)
	GenerateTitle(ctx context.Context, history []chat.Message, profile *chat.Profile) (string, error)
	SearchSchools(ctx context.Context, criteria catalog.Criteria) ([]catalog.School, error)
	GetSchoolByCode(ctx context.Context, code string) (*catalog.School, error)
	RefreshSchools(ctx context.Context) (int, error)
	Programs(ctx context.Context) ([]catalog.Program, error)
	ProgramByCode(ctx context.Context, code string) (*catalog.Program, error)
	RefreshPrograms(ctx context.Context) (int, error)
}

type Server struct {
	cfg    *config.Config
	svc    GuidanceService
	logger *slog.Logger
}

// NewServer creates the HTTP server front.
func NewServer(logger *slog.Logger, cfg *config.Config, svc GuidanceService) *Server {
	return &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logger.With("component", "web_server"),
	}
}

// Handler builds the routed handler with middlewares applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/guidance", instrumentHandler("guidance", s.guidanceHandler))
	mux.HandleFunc("POST /api/guidance/stream", instrumentHandler("guidance_stream", s.guidanceStreamHandler))
	mux.HandleFunc("POST /api/title", instrumentHandler("title", s.titleHandler))

	mux.HandleFunc("GET /api/schools", instrumentHandler("schools", s.schoolsHandler))
	mux.HandleFunc("GET /api/schools/{code}", instrumentHandler("school", s.schoolHandler))
	mux.HandleFunc("GET /api/programs", instrumentHandler("programs", s.programsHandler))
	mux.HandleFunc("GET /api/programs/{code}", instrumentHandler("program", s.programHandler))

	mux.HandleFunc("POST /api/admin/refresh", instrumentHandler("refresh", s.refreshHandler))

	mux.HandleFunc("GET /healthz", instrumentHandler("healthz", s.healthzHandler))
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := s.basicAuthMiddleware(mux)
	return s.loggingMiddleware(handler)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Server.Auth.Enabled && s.cfg.Server.Auth.Password == "" {
		bytes := make([]byte, 6)
		if _, err := rand.Read(bytes); err != nil {
			return fmt.Errorf("failed to generate random password: %w", err)
		}
		s.cfg.Server.Auth.Password = hex.EncodeToString(bytes)
		s.logger.Info("admin password auto-generated", "password", s.cfg.Server.Auth.Password)
	}

	server := &http.Server{
		Addr:              ":" + s.cfg.Server.ListenPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("web server listening", "port", s.cfg.Server.ListenPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type profilePayload struct {
	Age       int    `json:"age,omitempty"`
	Education string `json:"education,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

type guidanceRequest struct {
	Message string          `json:"message"`
	History []chatMessage   `json:"history,omitempty"`
	Profile *profilePayload `json:"profile,omitempty"`
}

func (req *guidanceRequest) toDomain() ([]chat.Message, *chat.Profile) {
	history := make([]chat.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, chat.Message{Role: m.Role, Content: m.Content})
	}
	var profile *chat.Profile
	if req.Profile != nil {
		profile = &chat.Profile{
			Age:       req.Profile.Age,
			Education: req.Profile.Education,
			Purpose:   req.Profile.Purpose,
			Gender:    req.Profile.Gender,
		}
	}
	return history, profile
}

func (s *Server) guidanceHandler(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fault.Wrap(fault.CodeInput, "invalid request body", err))
		return
	}
	history, profile := req.toDomain()

	response, err := s.svc.GetGuidance(r.Context(), req.Message, history, profile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"response": response})
}

func (s *Server) guidanceStreamHandler(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fault.Wrap(fault.CodeInput, "invalid request body", err))
		return
	}
	history, profile := req.toDomain()

	stream, err := s.svc.GetGuidanceStream(r.Context(), req.Message, history, profile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer stream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, fault.New(fault.CodeUnknown, "streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
			return
		}
		if err != nil {
			payload, _ := json.Marshal(map[string]string{"error": fault.From(err).Message})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			return
		}
		payload, err := json.Marshal(map[string]string{"delta": chunk})
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

func (s *Server) titleHandler(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fault.Wrap(fault.CodeInput, "invalid request body", err))
		return
	}
	history, profile := req.toDomain()

	title, err := s.svc.GenerateTitle(r.Context(), history, profile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

func (s *Server) schoolsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := catalog.Criteria{
		Municipality: q.Get("municipality"),
		FreeText:     q.Get("q"),
	}
	if programs := q.Get("programs"); programs != "" {
		criteria.ProgramCodes = strings.Split(programs, ",")
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			s.writeError(w, fault.New(fault.CodeInput, "limit must be a positive integer"))
			return
		}
		criteria.MaxResults = n
	}

	schools, err := s.svc.SearchSchools(r.Context(), criteria)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"schools": schools, "count": len(schools)})
}

func (s *Server) schoolHandler(w http.ResponseWriter, r *http.Request) {
	school, err := s.svc.GetSchoolByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"school": school})
}

func (s *Server) programsHandler(w http.ResponseWriter, r *http.Request) {
	programs, err := s.svc.Programs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"programs": programs, "count": len(programs)})
}

func (s *Server) programHandler(w http.ResponseWriter, r *http.Request) {
	program, err := s.svc.ProgramByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"program": program})
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "schools"
	}

	var (
		count int
		err   error
	)
	switch kind {
	case "schools":
		count, err = s.svc.RefreshSchools(r.Context())
	case "programs":
		count, err = s.svc.RefreshPrograms(r.Context())
	default:
		s.writeError(w, fault.Newf(fault.CodeInput, "unknown refresh kind %q", kind))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "count": count})
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError renders a structured error payload. The raw cause never
// reaches the client; only the classified code, message and retry hints.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	fe := fault.From(err)

	body := map[string]any{
		"code":     string(fe.Code),
		"message":  fe.Message,
		"canRetry": fe.CanRetry,
	}
	if fe.RetryAfter > 0 {
		body["retryAfterSeconds"] = int(fe.RetryAfter.Seconds())
	}
	s.writeJSON(w, statusFor(fe), body)
}

func statusFor(fe *fault.Error) int {
	switch fe.Code {
	case fault.CodeInput:
		return http.StatusBadRequest
	case fault.CodeSchoolNotFound, fault.CodeProgramNotFound:
		return http.StatusNotFound
	case fault.CodeAuthentication:
		return http.StatusUnauthorized
	case fault.CodeRateLimited:
		return http.StatusTooManyRequests
	case fault.CodeServiceOverloaded:
		return http.StatusServiceUnavailable
	default:
		if fe.CanRetry {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

// basicAuthMiddleware protects the admin routes.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/admin/") && s.cfg.Server.Auth.Enabled {
			user, pass, ok := r.BasicAuth()
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Server.Auth.Username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.Server.Auth.Password)) == 1
			if !ok || !userOK || !passOK {
				w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start))
	})
}
