package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/powerhit/internal/auth"
	"github.com/2beens/powerhit/internal/middleware"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	testIdentity := auth.Identity{UserID: 42, Username: "lifter"}

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		expectedStatusCode int
		mockIdentityErr    error
		expectCheck        bool
		expectIdentity     bool
	}{
		{
			name:               "AllowedPathWithoutToken",
			path:               "/workout/today",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "AllowedPrefixWithoutToken",
			path:               "/exercises/pushup",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Options",
			path:               "/session/start",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "NotAllowedPathWithoutToken",
			path:               "/progress/month",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ValidToken",
			path:               "/session/start",
			method:             "POST",
			token:              "valid-token",
			expectedStatusCode: http.StatusOK,
			expectCheck:        true,
			expectIdentity:     true,
		},
		{
			name:               "UnknownToken",
			path:               "/session/start",
			method:             "POST",
			token:              "invalid-token",
			expectedStatusCode: http.StatusUnauthorized,
			mockIdentityErr:    auth.ErrSessionNotFound,
			expectCheck:        true,
		},
		{
			name:               "CheckerFailure",
			path:               "/progress/month",
			method:             "GET",
			token:              "valid-token",
			expectedStatusCode: http.StatusUnauthorized,
			mockIdentityErr:    errors.New("redis down"),
			expectCheck:        true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockLoginChecker := NewMockloginChecker(ctrl)
			authMiddleware := middleware.NewAuthMiddlewareHandler(mockLoginChecker)

			req, err := http.NewRequest(tc.method, tc.path, nil)
			assert.NoError(t, err)
			if tc.token != "" {
				req.Header.Add(auth.TokenHeader, tc.token)
			}

			if tc.expectCheck {
				identity := testIdentity
				if tc.mockIdentityErr != nil {
					identity = auth.Identity{}
				}
				mockLoginChecker.EXPECT().
					Identity(gomock.Any(), tc.token).
					Return(identity, tc.mockIdentityErr)
			}

			var gotIdentity auth.Identity
			var hasIdentity bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIdentity, hasIdentity = auth.IdentityFromContext(r.Context())
			})

			rr := httptest.NewRecorder()
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.Equal(t, tc.expectIdentity, hasIdentity)
			if tc.expectIdentity {
				assert.Equal(t, testIdentity, gotIdentity)
			}
		})
	}
}
