package misc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/powerhit/internal/auth"
	"github.com/2beens/powerhit/internal/middleware"
	"github.com/2beens/powerhit/internal/telemetry/metrics"
	"github.com/2beens/powerhit/internal/telemetry/tracing"
	"github.com/2beens/powerhit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type authService interface {
	Register(ctx context.Context, credentials auth.Credentials, createdAt time.Time) (string, auth.Identity, error)
	Login(ctx context.Context, credentials auth.Credentials, createdAt time.Time) (string, auth.Identity, error)
	Logout(ctx context.Context, token string) (auth.Identity, error)
}

// sessionTeardown ends the workout session of a user that logs out.
type sessionTeardown interface {
	Teardown(userID int)
}

type Handler struct {
	versionInfo     string
	authService     authService
	loginChecker    auth.Checker
	sessionTeardown sessionTeardown
}

func NewHandler(
	versionInfo string,
	authService authService,
	loginChecker auth.Checker,
	sessionTeardown sessionTeardown,
) *Handler {
	return &Handler{
		versionInfo:     versionInfo,
		authService:     authService,
		loginChecker:    loginChecker,
		sessionTeardown: sessionTeardown,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
	metricsManager *metrics.Manager,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	loginSubrouter := mainRouter.PathPrefix("/a").Subrouter()
	loginSubrouter.
		HandleFunc("/register", handler.handleRegister).
		Methods("POST", "OPTIONS").Name("register")
	loginSubrouter.
		HandleFunc("/login", handler.handleLogin).
		Methods("POST", "OPTIONS").Name("login")
	loginSubrouter.
		HandleFunc("/logout", handler.handleLogout).
		Methods("GET", "OPTIONS").Name("logout")
	loginSubrouter.
		HandleFunc("/session", handler.handleSession).
		Methods("GET", "OPTIONS").Name("auth-session")

	// rate limit the /a/* endpoints to prevent credential stuffing
	loginSubrouter.Use(middleware.RateLimit(rateLimiter, "login", allowedPerMin, metricsManager))
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

type tokenResponse struct {
	Token    string        `json:"token"`
	Identity auth.Identity `json:"identity"`
}

func readCredentials(r *http.Request) (auth.Credentials, error) {
	var credentials auth.Credentials
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
			return auth.Credentials{}, err
		}
		return credentials, nil
	}

	if err := r.ParseForm(); err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{
		Username: r.Form.Get("username"),
		Password: r.Form.Get("password"),
	}, nil
}

// authErrorStatus maps user facing auth errors to a status and message.
func authErrorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, "error, username and password are required", true
	case errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest, "error, " + auth.ErrPasswordTooShort.Error(), true
	case errors.Is(err, auth.ErrWrongCredentials):
		return http.StatusBadRequest, "error, wrong credentials", true
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, "error, username already taken", true
	}
	return 0, "", false
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.register")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	credentials, err := readCredentials(r)
	if err != nil {
		log.Errorf("register, read credentials: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	token, identity, err := handler.authService.Register(ctx, credentials, time.Now())
	if err != nil {
		if status, msg, ok := authErrorStatus(err); ok {
			span.SetStatus(codes.Error, msg)
			http.Error(w, msg, status)
			return
		}
		log.Errorf("register failed: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.Int("user.id", identity.UserID))
	pkg.WriteJSON(w, tokenResponse{Token: token, Identity: identity}, http.StatusOK)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	credentials, err := readCredentials(r)
	if err != nil {
		log.Errorf("login, read credentials: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	token, identity, err := handler.authService.Login(ctx, credentials, time.Now())
	if err != nil {
		if status, msg, ok := authErrorStatus(err); ok {
			log.Tracef("failed login attempt for user: %s", credentials.Username)
			span.SetStatus(codes.Error, msg)
			http.Error(w, msg, status)
			return
		}
		log.Errorf("login failed: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success: %d", identity.UserID)
	pkg.WriteJSON(w, tokenResponse{Token: token, Identity: identity}, http.StatusOK)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	authToken := r.Header.Get(auth.TokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	identity, err := handler.authService.Logout(ctx, authToken)
	if err != nil {
		log.Tracef("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	// stops the tick loop; a pending completion write is left to finish on its own
	handler.sessionTeardown.Teardown(identity.UserID)

	log.Printf("logout for user [%d] success", identity.UserID)
	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.session")
	defer span.End()

	authToken := r.Header.Get(auth.TokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	identity, err := handler.loginChecker.Identity(ctx, authToken)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			log.Errorf("session check: %s", err)
		}
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSON(w, identity, http.StatusOK)
}
