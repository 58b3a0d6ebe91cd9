package workout

import (
	"time"

	"github.com/2beens/powerhit/internal/exercises"
)

const DateLayout = "2006-01-02"

// Plan is the ordered workout of one calendar day. It is recomputed on every load.
type Plan struct {
	Date      time.Time            `json:"-"`
	Exercises []exercises.Exercise `json:"exercises"`
}

func (p Plan) Len() int {
	return len(p.Exercises)
}

func (p Plan) Empty() bool {
	return len(p.Exercises) == 0
}

func (p Plan) WorkSeconds() int {
	total := 0
	for _, e := range p.Exercises {
		total += e.WorkSeconds
	}
	return total
}

func (p Plan) RestSeconds() int {
	total := 0
	for _, e := range p.Exercises {
		total += e.RestSeconds
	}
	return total
}

func (p Plan) TotalSeconds() int {
	return p.WorkSeconds() + p.RestSeconds()
}

// PlanResponse is the JSON view of a plan.
type PlanResponse struct {
	Date         string               `json:"date"`
	Available    bool                 `json:"available"`
	Exercises    []exercises.Exercise `json:"exercises"`
	WorkSeconds  int                  `json:"workSeconds"`
	RestSeconds  int                  `json:"restSeconds"`
	TotalSeconds int                  `json:"totalSeconds"`
}

func NewPlanResponse(p Plan) PlanResponse {
	exs := p.Exercises
	if exs == nil {
		exs = []exercises.Exercise{}
	}
	return PlanResponse{
		Date:         p.Date.Format(DateLayout),
		Available:    !p.Empty(),
		Exercises:    exs,
		WorkSeconds:  p.WorkSeconds(),
		RestSeconds:  p.RestSeconds(),
		TotalSeconds: p.TotalSeconds(),
	}
}
