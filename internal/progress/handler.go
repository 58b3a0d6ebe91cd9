package progress

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/2beens/powerhit/internal/auth"
	"github.com/2beens/powerhit/internal/telemetry/tracing"
	"github.com/2beens/powerhit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type Handler struct {
	tracker  *Tracker
	location *time.Location
	now      func() time.Time
}

func NewHandler(tracker *Tracker, location *time.Location) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		tracker:  tracker,
		location: location,
		now:      time.Now,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/progress/month", h.HandleMonth).Methods("GET", "OPTIONS").Name("progress-month")
	r.HandleFunc("/progress/complete", h.HandleComplete).Methods("POST", "OPTIONS").Name("progress-complete")
}

// HandleMonth serves the completed dates of ?month=YYYY-MM, the current month by default.
func (h *Handler) HandleMonth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.month")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	monthStart := MonthStart(h.now().In(h.location))
	if monthParam := r.URL.Query().Get("month"); monthParam != "" {
		parsed, err := time.ParseInLocation(MonthLayout, monthParam, h.location)
		if err != nil {
			http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		monthStart = parsed
	}
	span.SetAttributes(attribute.String("progress.month", monthStart.Format(MonthLayout)))

	monthProgress, err := h.tracker.LoadMonthProgress(ctx, identity.UserID, monthStart)
	if err != nil {
		log.Errorf("load month progress of user %d: %s", identity.UserID, err)
		http.Error(w, "failed to load progress", http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSON(w, NewMonthProgressResponse(monthProgress), http.StatusOK)
}

// HandleComplete marks today as completed. The body with a run summary is optional.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.complete")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var summary Summary
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&summary); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid completion summary", http.StatusBadRequest)
			return
		}
	}
	if summary.ExercisesCompleted < 0 || summary.TotalDurationSeconds < 0 {
		http.Error(w, "invalid completion summary", http.StatusBadRequest)
		return
	}

	today := h.now().In(h.location)
	if err := h.tracker.RecordCompletion(ctx, identity.UserID, today, summary); err != nil {
		if errors.Is(err, ErrInvalidUser) {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("record completion of user %d: %s", identity.UserID, err)
		http.Error(w, "failed to save progress, try again", http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSON(w, map[string]string{"date": today.Format(DateLayout)}, http.StatusOK)
}
