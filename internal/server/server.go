// Package server предоставляет HTTP API администратора: проверку работоспособности,
// метрики Prometheus и управление журналом предупреждений и настройками чатов.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telegram-moderation-bot/internal/core/services"
	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
)

// requestIDHeader — заголовок с идентификатором запроса.
const requestIDHeader = "X-Request-Id"

// ChatStore определяет операции реестра чатов, доступные через API.
type ChatStore interface {
	List(ctx context.Context) ([]domain.ChatInfo, error)
	Get(ctx context.Context, chatID domain.ChatID) (*domain.ChatInfo, error)
	SetAutoContent(ctx context.Context, chatID domain.ChatID, enabled bool) error
	SetInterval(ctx context.Context, chatID domain.ChatID, hours float64) error
	ClearInterval(ctx context.Context, chatID domain.ChatID) error
}

// Enforcer выдает и снимает предупреждения с применением наказаний.
type Enforcer interface {
	Warn(ctx context.Context, chatID domain.ChatID, userID domain.UserID, name, reason, issuer string) (services.WarningResult, error)
	ClearWarnings(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error)
}

// WarningLog читает журнал предупреждений.
type WarningLog interface {
	GetWarnings(ctx context.Context, chatID domain.ChatID, userID domain.UserID) ([]domain.Warning, error)
	ListChat(ctx context.Context, chatID domain.ChatID) ([]domain.WarningRecord, error)
}

// Trigger немедленно отправляет контент в чат.
type Trigger interface {
	TriggerNow(ctx context.Context, chatID domain.ChatID, requester string, now time.Time) error
}

// Deps — зависимости HTTP-сервера.
type Deps struct {
	Config   *config.Config
	Chats    ChatStore
	Enforcer Enforcer
	Warnings WarningLog
	Trigger  Trigger
	Logger   *slog.Logger
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	chats      ChatStore
	enforcer   Enforcer
	warnings   WarningLog
	trigger    Trigger
	logger     *slog.Logger
}

// New создает новый экземпляр Server
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	s := &Server{
		cfg:      cfg,
		chats:    deps.Chats,
		enforcer: deps.Enforcer,
		warnings: deps.Warnings,
		trigger:  deps.Trigger,
		logger:   logger.With("component", "http"),
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(s.requestID)
	chiRouter.Use(s.accessLog)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	chiRouter.Handle("/metrics", promhttp.Handler())

	// Без токена API администратора не публикуется.
	if cfg.Server.APIToken != "" {
		chiRouter.Route("/api/v1", func(r chi.Router) {
			r.Use(s.bearerAuth)
			r.Get("/chats", s.listChats)
			r.Route("/chats/{chatID}", func(r chi.Router) {
				r.Get("/warnings", s.listChatWarnings)
				r.Get("/warnings/{userID}", s.getWarnings)
				r.Post("/warnings/{userID}", s.addWarning)
				r.Delete("/warnings/{userID}", s.clearWarnings)
				r.Put("/settings", s.updateSettings)
				r.Post("/trigger", s.triggerContent)
			})
		})
	}

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	if err := s.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.HTTPServer.Shutdown(ctx)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"request_id", w.Header().Get(requestIDHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
		)
	})
}

func (s *Server) bearerAuth(next http.Handler) http.Handler {
	expected := []byte("Bearer " + s.cfg.Server.APIToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку предметной области в HTTP-статус.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAdapter):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed", "request_id", w.Header().Get(requestIDHeader), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func chatParam(r *http.Request) domain.ChatID {
	return domain.ChatID(chi.URLParam(r, "chatID"))
}

func userParam(r *http.Request) domain.UserID {
	return domain.UserID(chi.URLParam(r, "userID"))
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]ChatDTO, 0, len(chats))
	for _, c := range chats {
		out = append(out, newChatDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listChatWarnings(w http.ResponseWriter, r *http.Request) {
	chatID := chatParam(r)
	records, err := s.warnings.ListChat(r.Context(), chatID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]UserWarningsDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, newUserWarningsDTO(rec.ChatID, rec.UserID, rec.Warnings))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getWarnings(w http.ResponseWriter, r *http.Request) {
	chatID, userID := chatParam(r), userParam(r)
	warnings, err := s.warnings.GetWarnings(r.Context(), chatID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserWarningsDTO(chatID, userID, warnings))
}

func (s *Server) addWarning(w http.ResponseWriter, r *http.Request) {
	var req WarnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Issuer) == "" {
		req.Issuer = "api"
	}
	chatID, userID := chatParam(r), userParam(r)
	name := req.Name
	if name == "" {
		name = "user " + string(userID)
	}

	res, err := s.enforcer.Warn(r.Context(), chatID, userID, name, req.Reason, req.Issuer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, WarnResponse{Count: res.Count, Punishment: res.Punishment.String()})
}

func (s *Server) clearWarnings(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.enforcer.ClearWarnings(r.Context(), chatParam(r), userParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !cleared {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no warnings"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	ctx := r.Context()
	chatID := chatParam(r)

	// Настройки меняются только у известных чатов.
	if _, err := s.chats.Get(ctx, chatID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.IntervalHours != nil {
		var err error
		if *req.IntervalHours == 0 {
			err = s.chats.ClearInterval(ctx, chatID)
		} else {
			err = s.chats.SetInterval(ctx, chatID, *req.IntervalHours)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.AutoContent != nil {
		if err := s.chats.SetAutoContent(ctx, chatID, *req.AutoContent); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatDTO(*chat))
}

func (s *Server) triggerContent(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}
	if req.Requester == "" {
		req.Requester = "admin API"
	}
	ctx := r.Context()
	chatID := chatParam(r)
	if _, err := s.chats.Get(ctx, chatID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.trigger.TriggerNow(ctx, chatID, req.Requester, time.Now()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
