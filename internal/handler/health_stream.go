package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/tenantsync/internal/featureflags"
	"github.com/aryan0dhankhar/tenantsync/internal/observability/metrics"
	"github.com/aryan0dhankhar/tenantsync/internal/security"
	"github.com/aryan0dhankhar/tenantsync/internal/security/auth"
	"github.com/aryan0dhankhar/tenantsync/internal/service"
)

// DefaultStreamInterval is how often a health report is pushed to subscribers
const DefaultStreamInterval = 5 * time.Second

const streamWriteWait = 10 * time.Second

// HealthStreamHandler pushes a tenant's health report over a websocket.
// Browsers cannot set headers on the upgrade request, so the bearer token may
// also arrive as the access_token query parameter.
type HealthStreamHandler struct {
	pipelines      *service.PipelineService
	guard          *security.Guard
	flags          featureflags.Flags
	allowedOrigins []string
	interval       time.Duration
	logger         *slog.Logger
}

// NewHealthStreamHandler creates a new health stream handler
func NewHealthStreamHandler(
	pipelines *service.PipelineService,
	guard *security.Guard,
	flags featureflags.Flags,
	allowedOrigins []string,
	interval time.Duration,
	logger *slog.Logger,
) *HealthStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &HealthStreamHandler{
		pipelines:      pipelines,
		guard:          guard,
		flags:          flags,
		allowedOrigins: allowedOrigins,
		interval:       interval,
		logger:         logger,
	}
}

func (h *HealthStreamHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(h.allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

func streamToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return auth.ExtractToken(header)
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, nil
	}
	return "", security.ErrUnauthenticated
}

func (h *HealthStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.flags.Enabled(featureflags.HealthStream) {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}

	tenantID := r.PathValue("tenant_id")

	token, err := streamToken(r)
	if err != nil {
		metrics.ObserveTokenRejection("missing")
		writeError(w, h.logger, security.ErrUnauthenticated)
		return
	}
	identity, err := h.guard.ResolveIdentity(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.guard.Authorize(identity, tenantID, security.PermReadHealth); err != nil {
		if errors.Is(err, security.ErrForbidden) {
			metrics.ObserveAuthzDenial(string(security.PermReadHealth))
		}
		writeError(w, h.logger, err)
		return
	}

	// first report before upgrading so unknown tenants get a plain 404
	report, err := h.pipelines.Health(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	// the server's read/write timeouts survive the hijack
	ws.SetReadDeadline(time.Time{})

	metrics.IncrementStreams()
	defer metrics.DecrementStreams()

	h.logger.Info("health stream opened",
		slog.String("tenant_id", tenantID),
		slog.String("username", identity.Username),
	)

	// the reader only exists to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("health stream read failed", slog.String("error", err.Error()))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := ws.WriteJSON(report); err != nil {
			h.logger.Debug("health stream ended",
				slog.String("tenant_id", tenantID),
				slog.String("reason", err.Error()),
			)
			return
		}

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		report, err = h.pipelines.Health(r.Context(), tenantID)
		if err != nil {
			h.logger.Warn("health stream refresh failed",
				slog.String("tenant_id", tenantID),
				slog.String("error", err.Error()),
			)
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "health unavailable"),
				time.Now().Add(time.Second))
			return
		}
	}
}
