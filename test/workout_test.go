package test

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/2beens/powerhit/internal/exercises"
	"github.com/2beens/powerhit/internal/interval"
	"github.com/2beens/powerhit/internal/progress"
	"github.com/2beens/powerhit/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestCatalog() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := s.doRequest(ctx, "GET", "/exercises", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var catalog []exercises.Exercise
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&catalog))
	require.Len(t, catalog, 10)
	for _, e := range catalog {
		assert.NoError(t, e.Validate())
	}

	resp = s.doRequest(ctx, "GET", "/exercises/plank", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plank exercises.Exercise
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plank))
	assert.Equal(t, 60, plank.WorkSeconds)
	assert.Equal(t, 20, plank.RestSeconds)

	resp = s.doRequest(ctx, "GET", "/exercises/handstand", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestDailyPlan() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	getPlan := func(date string) workout.PlanResponse {
		resp := s.doRequest(ctx, "GET", "/workout/today?date="+date, "", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var plan workout.PlanResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
		return plan
	}

	first := getPlan("2025-02-10")
	again := getPlan("2025-02-10")
	nextDay := getPlan("2025-02-11")

	require.True(t, first.Available)
	require.Len(t, first.Exercises, 6)
	assert.Equal(t, first, again)
	assert.NotEqual(t, first.Exercises, nextDay.Exercises)

	seen := map[string]bool{}
	for _, e := range first.Exercises {
		assert.False(t, seen[e.ID], "duplicate exercise %s", e.ID)
		seen[e.ID] = true
	}

	resp := s.doRequest(ctx, "GET", "/workout/today?date=10.02.2025", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestWorkoutRunIsRecorded() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.register(ctx, newCredentials())

	resp := s.doRequest(ctx, "POST", "/session/start", user.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap interval.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, interval.PhaseWorking, snap.State.Phase)
	require.Equal(t, 6, snap.PlanLength)

	require.Eventually(t, func() bool {
		resp := s.doRequest(ctx, "GET", "/session", user.Token, nil)
		defer resp.Body.Close()
		var snap interval.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return false
		}
		return snap.State.Phase == interval.PhaseCompleted
	}, 30*time.Second, 50*time.Millisecond)

	today := time.Now().UTC().Format(progress.DateLayout)
	countRows := func() int {
		var count int
		require.NoError(t, s.DB.QueryRowContext(ctx,
			`SELECT count(*) FROM workout_progress WHERE user_id = $1 AND completed_date = $2::date`,
			user.Identity.UserID, today,
		).Scan(&count))
		return count
	}

	// the completion write is async to the state change
	require.Eventually(t, func() bool {
		return countRows() == 1
	}, 10*time.Second, 50*time.Millisecond)

	var exercisesCompleted, totalDuration int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT exercises_completed, total_duration FROM workout_progress WHERE user_id = $1`,
		user.Identity.UserID,
	).Scan(&exercisesCompleted, &totalDuration))
	assert.Equal(t, 6, exercisesCompleted)
	assert.Positive(t, totalDuration)

	// marking the same day again keeps a single record
	resp = s.doRequest(ctx, "POST", "/progress/complete", user.Token, progress.Summary{ExercisesCompleted: 6})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, 1, countRows())

	resp = s.doRequest(ctx, "GET", "/progress/month", user.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var month progress.MonthProgressResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&month))
	assert.Equal(t, 1, month.Count)
	assert.Equal(t, []string{today}, month.Dates)
	assert.InDelta(t, 100/float64(month.DaysInMonth), month.Percentage, 0.001)
}

func (s *IntegrationTestSuite) TestProgressIsPerUser() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := s.register(ctx, newCredentials())
	bob := s.register(ctx, newCredentials())

	resp := s.doRequest(ctx, "POST", "/progress/complete", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	monthCount := func(token string) int {
		resp := s.doRequest(ctx, "GET", "/progress/month", token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var month progress.MonthProgressResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&month))
		return month.Count
	}

	assert.Equal(t, 1, monthCount(alice.Token))
	assert.Equal(t, 0, monthCount(bob.Token))

	resp = s.doRequest(ctx, "GET", "/progress/month?month=2020-13", alice.Token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
