// Package api exposes the HTTP surface of the client shell: login,
// profile management, the system log, host stats and the voice session
// controls.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/adapters/profilestore"
	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/internal/audit"
	"github.com/avalonlabs/vesper/internal/auth"
	"github.com/avalonlabs/vesper/internal/monitor"
	"github.com/avalonlabs/vesper/internal/session"
	"github.com/avalonlabs/vesper/internal/websocket"
	"github.com/avalonlabs/vesper/usecase"
)

// Server bundles the collaborators behind the HTTP handlers.
type Server struct {
	assistant *usecase.AssistantService
	issuer    *auth.Issuer
	logs      *audit.Store
	monitor   *monitor.Monitor
	hub       *websocket.Hub
	logger    *zap.Logger
}

// NewServer creates the handler set.
func NewServer(
	assistant *usecase.AssistantService,
	issuer *auth.Issuer,
	logs *audit.Store,
	mon *monitor.Monitor,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		assistant: assistant,
		issuer:    issuer,
		logs:      logs,
		monitor:   mon,
		hub:       hub,
		logger:    logger,
	}
}

// InitRoutes registers every route on the Echo instance.
func (s *Server) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "vesperd",
		})
	})

	// UI event stream
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleEventSocket(s.hub, c, s.logger)
	})

	v1 := e.Group("/api/v1")
	v1.POST("/auth/login", s.login)

	secured := v1.Group("", s.requireToken)

	secured.GET("/profiles", s.listProfiles)
	secured.POST("/profiles", s.createProfile)
	secured.GET("/profiles/:id", s.getProfile)
	secured.PUT("/profiles/:id", s.updateProfile)
	secured.DELETE("/profiles/:id", s.deleteProfile)

	secured.GET("/logs", s.listLogs)
	secured.DELETE("/logs", s.clearLogs)

	secured.GET("/system/stats", s.systemStats)

	secured.POST("/session/connect", s.sessionConnect)
	secured.POST("/session/disconnect", s.sessionDisconnect)
	secured.GET("/session/state", s.sessionState)
}

// requireToken validates the Bearer token on protected routes.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		var token string
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "Bearer token is required",
			})
		}

		claims, err := s.issuer.ValidateToken(token)
		if err != nil {
			s.logger.Warn("Rejected request with invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired token",
			})
		}

		c.Set("profile_id", claims.ProfileID)
		return next(c)
	}
}

func (s *Server) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.ProfileID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "profile_id is required",
		})
	}

	profile, err := s.assistant.Authenticate(c.Request().Context(), req.ProfileID)
	if err != nil {
		s.logger.Warn("Login failed", zap.String("profileID", req.ProfileID), zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Unknown profile",
		})
	}

	token, expiresAt, err := s.issuer.IssueToken(profile.ID, profile.Name)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   profile,
	})
}

func (s *Server) listProfiles(c echo.Context) error {
	profiles, err := s.assistant.ListProfiles(c.Request().Context())
	if err != nil {
		return s.internalError(c, "Failed to list profiles", err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (s *Server) createProfile(c echo.Context) error {
	var profile entities.UserProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid profile payload",
		})
	}
	if err := s.assistant.CreateProfile(c.Request().Context(), &profile); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_profile",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, profile)
}

func (s *Server) getProfile(c echo.Context) error {
	profile, err := s.assistant.GetProfile(c.Request().Context(), c.Param("id"))
	if errors.Is(err, profilestore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
	}
	if err != nil {
		return s.internalError(c, "Failed to load profile", err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) updateProfile(c echo.Context) error {
	var profile entities.UserProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid profile payload",
		})
	}
	profile.ID = c.Param("id")

	err := s.assistant.UpdateProfile(c.Request().Context(), &profile)
	if errors.Is(err, profilestore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_profile",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) deleteProfile(c echo.Context) error {
	err := s.assistant.DeleteProfile(c.Request().Context(), c.Param("id"))
	if errors.Is(err, profilestore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
	}
	if err != nil {
		return s.internalError(c, "Failed to delete profile", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listLogs(c echo.Context) error {
	return c.JSON(http.StatusOK, LogsResponse{Entries: s.logs.List()})
}

func (s *Server) clearLogs(c echo.Context) error {
	s.logs.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) systemStats(c echo.Context) error {
	stats, err := s.monitor.Stats()
	if err != nil {
		return s.internalError(c, "Failed to sample system stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) sessionConnect(c echo.Context) error {
	var req ConnectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	profileID := req.ProfileID
	if profileID == "" {
		// Default to the authenticated profile.
		profileID, _ = c.Get("profile_id").(string)
	}
	if profileID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "profile_id is required",
		})
	}

	err := s.assistant.Connect(c.Request().Context(), profileID)
	switch {
	case errors.Is(err, session.ErrSessionActive):
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "session_active",
			Message: "A session is already active",
		})
	case errors.Is(err, session.ErrMissingCredential):
		return c.JSON(http.StatusPreconditionFailed, ErrorResponse{
			Error:   "missing_credential",
			Message: "API key is not configured",
		})
	case errors.Is(err, profilestore.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
	case err != nil:
		return s.internalError(c, "Failed to start session", err)
	}

	return c.JSON(http.StatusAccepted, SessionStateResponse{State: s.assistant.SessionState()})
}

func (s *Server) sessionDisconnect(c echo.Context) error {
	s.assistant.Disconnect()
	return c.JSON(http.StatusOK, SessionStateResponse{State: s.assistant.SessionState()})
}

func (s *Server) sessionState(c echo.Context) error {
	return c.JSON(http.StatusOK, SessionStateResponse{State: s.assistant.SessionState()})
}

func (s *Server) internalError(c echo.Context, message string, err error) error {
	s.logger.Error(message, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}
