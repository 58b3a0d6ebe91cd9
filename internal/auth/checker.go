package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	Identity(ctx context.Context, token string) (Identity, error)
}

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// Identity resolves the token to the logged user. Unknown and expired tokens
// give ErrSessionNotFound.
func (c *LoginChecker) Identity(ctx context.Context, token string) (Identity, error) {
	cmd := c.redisClient.Get(ctx, sessionKeyPrefix+token)
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

	if session.expired(c.now(), c.ttl) {
		return Identity{}, ErrSessionNotFound
	}

	return Identity{
		UserID:   session.UserID,
		Username: session.Username,
		Token:    token,
		LoggedAt: session.CreatedAt,
	}, nil
}

// LoginTestChecker resolves tokens from a fixed map.
type LoginTestChecker struct {
	Sessions map[string]Identity
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		Sessions: map[string]Identity{},
	}
}

func (c *LoginTestChecker) Identity(_ context.Context, token string) (Identity, error) {
	identity, ok := c.Sessions[token]
	if !ok {
		return Identity{}, ErrSessionNotFound
	}
	identity.Token = token
	return identity, nil
}
