package workout

import (
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/powerhit/internal/telemetry/tracing"
	"github.com/2beens/powerhit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	generator *Generator
	now       func() time.Time
}

func NewHandler(generator *Generator) *Handler {
	return &Handler{
		generator: generator,
		now:       time.Now,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/workout/today", h.HandleToday).Methods("GET", "OPTIONS").Name("workout-today")
}

// HandleToday serves the plan of the current day, or of ?date=YYYY-MM-DD.
func (h *Handler) HandleToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.today")
	defer span.End()

	date, err := h.requestedDate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan, err := h.generator.PlanFor(ctx, date)
	if err != nil {
		log.Errorf("workout plan for %s: %s", date.Format(DateLayout), err)
		http.Error(w, "failed to get workout", http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSON(w, NewPlanResponse(plan), http.StatusOK)
}

func (h *Handler) requestedDate(r *http.Request) (time.Time, error) {
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		return h.generator.Today(h.now()), nil
	}
	date, err := time.ParseInLocation(DateLayout, dateParam, h.generator.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date [%s], expected YYYY-MM-DD", dateParam)
	}
	return date, nil
}
