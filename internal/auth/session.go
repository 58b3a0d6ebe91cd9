package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "powerhit-session||"
	tokensSetKey     = "powerhit-sessions"
	tokenLength      = 35

	// TokenHeader carries the session token on authenticated requests.
	TokenHeader = "X-POWERHIT-TOKEN"
)

// loginSession is stored in redis as "<user id>|<created at unix>|<username>".
type loginSession struct {
	UserID    int
	Username  string
	CreatedAt time.Time
}

func (s loginSession) encode() string {
	return fmt.Sprintf("%d|%d|%s", s.UserID, s.CreatedAt.Unix(), s.Username)
}

func decodeLoginSession(val string) (loginSession, error) {
	parts := strings.SplitN(val, "|", 3)
	if len(parts) != 3 {
		return loginSession{}, fmt.Errorf("malformed session value: %q", val)
	}

	userID, err := strconv.Atoi(parts[0])
	if err != nil {
		return loginSession{}, fmt.Errorf("session user id: %w", err)
	}
	createdAtUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return loginSession{}, fmt.Errorf("session created at: %w", err)
	}

	return loginSession{
		UserID:    userID,
		Username:  parts[2],
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

func (s loginSession) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
