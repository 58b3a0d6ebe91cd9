package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Identity struct {
		UserID   int    `json:"userId"`
		Username string `json:"username"`
	} `json:"identity"`
}

func newCredentials() credentials {
	return credentials{
		Username: gofakeit.Username() + gofakeit.DigitN(6),
		Password: gofakeit.Password(true, true, true, false, false, 12),
	}
}

func (s *IntegrationTestSuite) register(ctx context.Context, creds credentials) tokenResponse {
	t := s.T()

	resp := s.doRequest(ctx, "POST", "/a/register", "", creds)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokenResp tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	require.NotEmpty(t, tokenResp.Token)
	require.Positive(t, tokenResp.Identity.UserID)

	return tokenResp
}

func (s *IntegrationTestSuite) TestRegisterAndLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	creds := newCredentials()
	registered := s.register(ctx, creds)
	assert.Equal(t, creds.Username, registered.Identity.Username)

	var storedHash string
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE id = $1`, registered.Identity.UserID,
	).Scan(&storedHash))
	assert.NotEqual(t, creds.Password, storedHash)

	cases := map[string]struct {
		creds              credentials
		expectedStatusCode int
		expectedMessage    string
	}{
		"duplicate username": {
			creds:              credentials{Username: creds.Username, Password: "whatever-else"},
			expectedStatusCode: http.StatusConflict,
			expectedMessage:    "error, username already taken",
		},
		"short password": {
			creds:              credentials{Username: creds.Username + "x", Password: "abc"},
			expectedStatusCode: http.StatusBadRequest,
		},
		"missing username": {
			creds:              credentials{Username: "  ", Password: "long-enough"},
			expectedStatusCode: http.StatusBadRequest,
			expectedMessage:    "error, username and password are required",
		},
	}
	for tn, tc := range cases {
		t.Run("register "+tn, func(t *testing.T) {
			resp := s.doRequest(ctx, "POST", "/a/register", "", tc.creds)
			defer resp.Body.Close()
			require.Equal(t, tc.expectedStatusCode, resp.StatusCode)
			if tc.expectedMessage != "" {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tc.expectedMessage, strings.TrimSpace(string(respBytes)))
			}
		})
	}

	t.Run("login with good creds", func(t *testing.T) {
		resp := s.doRequest(ctx, "POST", "/a/login", "", creds)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var loginResp tokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
		assert.NotEmpty(t, loginResp.Token)
		assert.NotEqual(t, registered.Token, loginResp.Token)
		assert.Equal(t, registered.Identity.UserID, loginResp.Identity.UserID)
	})

	t.Run("login with bad password", func(t *testing.T) {
		resp := s.doRequest(ctx, "POST", "/a/login", "", credentials{Username: creds.Username, Password: "bad-password"})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "error, wrong credentials", strings.TrimSpace(string(respBytes)))
	})

	t.Run("login with unknown username", func(t *testing.T) {
		resp := s.doRequest(ctx, "POST", "/a/login", "", credentials{Username: "nobody-" + creds.Username, Password: creds.Password})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *IntegrationTestSuite) TestSessionAndLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registered := s.register(ctx, newCredentials())

	resp := s.doRequest(ctx, "GET", "/a/session", registered.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var identity struct {
		UserID int `json:"userId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&identity))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, registered.Identity.UserID, identity.UserID)

	// a running workout is torn down on logout
	resp = s.doRequest(ctx, "POST", "/session/start", registered.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = s.doRequest(ctx, "GET", "/a/logout", registered.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	for _, path := range []string{"/a/session", "/session", "/progress/month"} {
		resp = s.doRequest(ctx, "GET", path, registered.Token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		require.NoError(t, resp.Body.Close())
	}

	resp = s.doRequest(ctx, "GET", "/a/logout", registered.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func (s *IntegrationTestSuite) TestLoginRateLimiting() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// simulate login requests brute force attack
	creds := credentials{Username: "brute-force", Password: "wrong-pass"}
	for i := 1; i <= loginRateLimitPerMin+5; i++ {
		resp := s.doRequest(ctx, "POST", "/a/login", "", creds)
		if i <= loginRateLimitPerMin {
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, "iteration: %d", i)
		} else {
			require.Equal(t, http.StatusTooEarly, resp.StatusCode, "iteration: %d", i)
			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(respBytes), "retry after"), "iteration: %d", i)
		}
		assert.NoError(t, resp.Body.Close())
	}

	require.NoError(t, s.redisDataCleanup(ctx))
}
