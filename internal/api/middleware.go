package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	actorKey         = "actor"
	headerActorEmail = "X-Actor-Email"
	headerActorName  = "X-Actor-Name"
	breakGlassIssuer = "the300-break-glass"
	identityTimeout  = 5 * time.Second
)

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if actor, ok := actorFrom(c); ok {
			event = event.Str("actor", actor.Email)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Actor-Email, X-Actor-Name")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// breakGlassClaims is the payload of an out-of-band admin token. The subject
// is the holder's email.
type breakGlassClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// parseBreakGlass verifies an HS256 token signed with secret
func parseBreakGlass(token, secret string) (models.Actor, error) {
	claims := &breakGlassClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(breakGlassIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Actor{}, err
	}
	if claims.Subject == "" {
		return models.Actor{}, errors.New("token has no subject")
	}
	return models.Actor{
		Name:  claims.Name,
		Email: models.NormalizeEmail(claims.Subject),
		Roles: []string{models.RoleAdmin},
	}, nil
}

// actorMiddleware resolves who is calling. The fronting sign-in layer sets
// X-Actor-Email and X-Actor-Name; a break-glass bearer token overrides them.
// Roles are derived from the admin list and LOB assignments.
func actorMiddleware(roles service.RoleService, cfg *config.Config, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("middleware", "actor").Logger()

	return func(c *gin.Context) {
		var actor models.Actor

		if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && cfg.Auth.BreakGlassSecret != "" {
			a, err := parseBreakGlass(strings.TrimSpace(token), cfg.Auth.BreakGlassSecret)
			if err != nil {
				log.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Rejected break-glass token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			log.Warn().Str("actor", a.Email).Msg("Break-glass admin access")
			actor = a
		} else {
			email := models.NormalizeEmail(c.GetHeader(headerActorEmail))
			if email == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
				return
			}
			if cfg.Auth.AllowedDomain != "" && !strings.HasSuffix(email, cfg.Auth.AllowedDomain) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "email domain is not allowed"})
				return
			}
			actor = models.Actor{Name: strings.TrimSpace(c.GetHeader(headerActorName)), Email: email}
		}

		ctx, cancel := contextWithTimeout(c, identityTimeout)
		defer cancel()

		derived, err := roles.DeriveRoles(ctx, actor)
		if err != nil {
			log.Error().Err(err).Str("actor", actor.Email).Msg("Failed to derive roles")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve roles"})
			return
		}

		c.Set(actorKey, derived)
		c.Next()
	}
}

func actorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	a, ok := v.(models.Actor)
	return a, ok
}

// requireAdmin rejects callers without the admin role
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// Idle limiters are swept once this many keys are tracked
const maxTrackedLimiters = 1000

type trackedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per key and forgets keys that have
// been idle long enough for their bucket to refill.
type limiterSet struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	max     int
	now     func() time.Time
	clients map[string]*trackedLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	ttl := 10 * time.Minute
	if limit > 0 {
		// a bucket idle this long is full again, so dropping it grants nothing
		if refill := time.Duration(float64(max(burst, 1)) / float64(limit) * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return &limiterSet{
		limit:   limit,
		burst:   burst,
		idleTTL: ttl,
		max:     maxTrackedLimiters,
		now:     time.Now,
		clients: make(map[string]*trackedLimiter),
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tl, ok := s.clients[key]
	if !ok {
		s.gcLocked(now)
		tl = &trackedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = tl
	}
	tl.lastSeen = now
	return tl.limiter.AllowN(now, 1)
}

func (s *limiterSet) gcLocked(now time.Time) {
	if len(s.clients) < s.max {
		return
	}
	cutoff := now.Add(-s.idleTTL)
	for key, tl := range s.clients {
		if tl.lastSeen.Before(cutoff) {
			delete(s.clients, key)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// uploadLimiter throttles uploads per actor
func uploadLimiter(cfg *config.Config, m *metrics.Metrics) gin.HandlerFunc {
	limit := rate.Limit(cfg.Import.UploadRate)
	limiters := newLimiterSet(limit, cfg.Import.UploadBurst)

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if actor, ok := actorFrom(c); ok {
			key = actor.Email
		}
		if !limiters.allow(key) {
			m.IncRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many uploads, try again shortly"})
			return
		}
		c.Next()
	}
}
