package service

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserRateLimiter limita cuántas preguntas puede enviar un usuario por ventana.
//
// Ambas implementaciones aplican la misma política: un token bucket de capacidad max
// que recupera max tokens por window de forma continua.
type UserRateLimiter interface {
	Allow(key string) bool
}

const userLimiterIdleTTL = time.Hour

// RateLimitKey identifica al usuario dentro de su workspace.
func RateLimitKey(teamID, userID string) string {
	if teamID == "" {
		return userID
	}
	return teamID + ":" + userID
}

type userLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type memoryUserRateLimiter struct {
	mu        sync.Mutex
	users     map[string]*userLimiterEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryUserRateLimiter crea un token bucket por usuario en memoria. Devuelve nil si max <= 0.
func NewMemoryUserRateLimiter(window time.Duration, max int) UserRateLimiter {
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryUserRateLimiter{
		users:   make(map[string]*userLimiterEntry),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		idleTTL: userLimiterIdleTTL,
		now:     time.Now,
	}
}

func (l *memoryUserRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, e := range l.users {
			if now.Sub(e.lastSeen) >= l.idleTTL {
				delete(l.users, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.users[key]
	if !ok {
		e = &userLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
