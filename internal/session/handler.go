package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/powerhit/internal/auth"
	"github.com/2beens/powerhit/internal/interval"
	"github.com/2beens/powerhit/internal/telemetry/tracing"
	"github.com/2beens/powerhit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const eventsKeepAlive = 20 * time.Second

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/session", h.HandleGet).Methods("GET", "OPTIONS").Name("session")
	r.HandleFunc("/session/events", h.HandleEvents).Methods("GET", "OPTIONS").Name("session-events")
	r.HandleFunc("/session/start", h.HandleStart).Methods("POST", "OPTIONS").Name("session-start")
	r.HandleFunc("/session/pause", h.handleControl("pause", (*interval.Controller).Pause)).Methods("POST", "OPTIONS").Name("session-pause")
	r.HandleFunc("/session/resume", h.handleControl("resume", (*interval.Controller).Resume)).Methods("POST", "OPTIONS").Name("session-resume")
	r.HandleFunc("/session/skip", h.handleControl("skip", (*interval.Controller).Skip)).Methods("POST", "OPTIONS").Name("session-skip")
	r.HandleFunc("/session/stop", h.handleControl("stop", (*interval.Controller).Stop)).Methods("POST", "OPTIONS").Name("session-stop")
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	snap, err := h.manager.Controller(identity.UserID).Snapshot()
	if err != nil {
		log.Errorf("session snapshot of user %d: %s", identity.UserID, err)
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSON(w, snap, http.StatusOK)
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.start")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.Int("user.id", identity.UserID))

	snap, err := h.manager.Start(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, interval.ErrEmptyPlan) {
			http.Error(w, "no workout available today", http.StatusConflict)
			return
		}
		log.Errorf("start session of user %d: %s", identity.UserID, err)
		http.Error(w, "failed to start workout", http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSON(w, snap, http.StatusOK)
}

func (h *Handler) handleControl(name string, control func(*interval.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracing.GlobalTracer.Start(r.Context(), "handler.session."+name)
		defer span.End()

		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}

		c := h.manager.Controller(identity.UserID)
		if err := control(c); err != nil {
			log.Errorf("session %s of user %d: %s", name, identity.UserID, err)
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}

		snap, err := c.Snapshot()
		if err != nil {
			log.Errorf("session snapshot of user %d: %s", identity.UserID, err)
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}

		pkg.WriteJSON(w, snap, http.StatusOK)
	}
}

// HandleEvents streams controller events as server-sent events until the
// client goes away or the session is torn down.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cancel, err := h.manager.Controller(identity.UserID).Subscribe()
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	defer cancel()

	// the stream outlives the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debugf("session events, clear write deadline: %s", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				log.Errorf("marshal session event: %s", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
