package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/powerhit/internal/telemetry/tracing"
	"github.com/2beens/powerhit/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const MinPasswordLength = 4

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooShort   = fmt.Errorf("password must have at least %d characters", MinPasswordLength)
	ErrWrongCredentials   = errors.New("wrong username or password")
	ErrSessionNotFound    = errors.New("session not found")
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) normalized() Credentials {
	return Credentials{
		Username: strings.TrimSpace(c.Username),
		Password: c.Password,
	}
}

func (c Credentials) validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if len(c.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

//go:generate mockgen -source=service.go -destination=users_repo_mock_test.go -package=auth

type usersRepo interface {
	Create(ctx context.Context, username, passwordHash string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}

type Service struct {
	users       usersRepo
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	// injectable because bcrypt is slow on purpose
	HashPasswordFunc func(password string) (string, error)
}

func NewService(
	users usersRepo,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		users:            users,
		ttl:              ttl,
		redisClient:      redisClient,
		RandStringFunc:   pkg.GenerateRandomString,
		HashPasswordFunc: pkg.HashPassword,
	}
}

// Register creates the account and logs it in.
func (s *Service) Register(ctx context.Context, credentials Credentials, createdAt time.Time) (_ string, _ Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	credentials = credentials.normalized()
	if err := credentials.validate(); err != nil {
		return "", Identity{}, err
	}

	hash, err := s.HashPasswordFunc(credentials.Password)
	if err != nil {
		return "", Identity{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, credentials.Username, hash)
	if err != nil {
		return "", Identity{}, err
	}

	log.Printf("new user registered: %s [%d]", user.Username, user.ID)
	return s.newSession(ctx, user, createdAt)
}

func (s *Service) Login(ctx context.Context, credentials Credentials, createdAt time.Time) (_ string, _ Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	credentials = credentials.normalized()
	if credentials.Username == "" || credentials.Password == "" {
		return "", Identity{}, ErrMissingCredentials
	}

	user, err := s.users.GetByUsername(ctx, credentials.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", Identity{}, ErrWrongCredentials
		}
		return "", Identity{}, err
	}

	if !pkg.CheckPasswordHash(credentials.Password, user.PasswordHash) {
		return "", Identity{}, ErrWrongCredentials
	}

	return s.newSession(ctx, user, createdAt)
}

func (s *Service) newSession(ctx context.Context, user User, createdAt time.Time) (string, Identity, error) {
	token, err := s.RandStringFunc(tokenLength)
	if err != nil {
		return "", Identity{}, err
	}

	session := loginSession{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: createdAt,
	}
	sessionKey := sessionKeyPrefix + token
	cmdSet := s.redisClient.Set(ctx, sessionKey, session.encode(), s.ttl)
	if err := cmdSet.Err(); err != nil {
		return "", Identity{}, err
	}

	// add token to list of sessions
	cmdSAdd := s.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", Identity{}, err
	}

	return token, Identity{
		UserID:   user.ID,
		Username: user.Username,
		Token:    token,
		LoggedAt: time.Unix(createdAt.Unix(), 0),
	}, nil
}

// Logout removes the session and returns the identity it belonged to.
func (s *Service) Logout(ctx context.Context, token string) (_ Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.logout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	sessionKey := sessionKeyPrefix + token
	cmd := s.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrSessionNotFound
		}
		return Identity{}, err
	}

	session, err := decodeLoginSession(cmd.Val())
	if err != nil {
		return Identity{}, err
	}

	cmdDel := s.redisClient.Del(ctx, sessionKey)
	if err := cmdDel.Err(); err != nil {
		return Identity{}, err
	}

	// remove token from the list of sessions
	cmdSRem := s.redisClient.SRem(ctx, tokensSetKey, token)
	if err := cmdSRem.Err(); err != nil {
		return Identity{}, err
	}

	return Identity{
		UserID:   session.UserID,
		Username: session.Username,
		Token:    token,
		LoggedAt: session.CreatedAt,
	}, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (s *Service) ScanAndClean(ctx context.Context, now time.Time) {
	cmd := s.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Debugf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		cmd := s.redisClient.Get(ctx, sessionKey)
		if err := cmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				// key expired in redis, only the set entry is left
				toRemove = append(toRemove, token)
				continue
			}
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		session, err := decodeLoginSession(cmd.Val())
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if session.expired(now, s.ttl) {
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		log.Debugf("=>\twill clean the session with token: %s", token)
		cmdDel := s.redisClient.Del(ctx, sessionKeyPrefix+token)
		if err := cmdDel.Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}

		// remove token from the list of sessions
		cmdSRem := s.redisClient.SRem(ctx, tokensSetKey, token)
		if err := cmdSRem.Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
	}
}
