package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"financeflow/internal/domain"
	"financeflow/internal/infra/logging"
	"financeflow/internal/infra/metrics"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
	errNotEnabled   = errors.New("endpoint not configured")
)

// OperatorClaims is the payload of minted operator tokens.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Guard authorizes operator endpoints. A request passes with either the
// static secret or an HS256 token signed with the JWT key whose role matches.
type Guard struct {
	role   string
	secret []byte
	hmac   []byte
	log    *zerolog.Logger
	now    func() time.Time
}

func NewGuard(role, secret, jwtSecret string, logger *zerolog.Logger) *Guard {
	l := logger.With().Str("component", "guard").Str("role", role).Logger()
	return &Guard{
		role:   role,
		secret: []byte(secret),
		hmac:   []byte(jwtSecret),
		log:    &l,
		now:    time.Now,
	}
}

// Enabled reports whether any credential is configured.
func (g *Guard) Enabled() bool {
	return len(g.secret) > 0 || len(g.hmac) > 0
}

// Mint signs a token for this guard's role.
func (g *Guard) Mint(subject string, ttl time.Duration) (string, error) {
	if len(g.hmac) == 0 {
		return "", errNotEnabled
	}
	now := g.now()
	claims := OperatorClaims{
		Role: g.role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.hmac)
}

// Authorize checks the Authorization header of r.
func (g *Guard) Authorize(r *http.Request) error {
	if !g.Enabled() {
		return errNotEnabled
	}
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return errMissingToken
	}
	tok := strings.TrimSpace(hdr[7:])
	if tok == "" {
		return errMissingToken
	}
	if len(g.secret) > 0 && subtle.ConstantTimeCompare([]byte(tok), g.secret) == 1 {
		return nil
	}
	if len(g.hmac) == 0 {
		return errInvalidToken
	}
	return g.parse(tok)
}

func (g *Guard) parse(tok string) error {
	claims := &OperatorClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return g.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !tkn.Valid {
		return errInvalidToken
	}
	if claims.Role != g.role {
		return domain.ErrUnauthorized
	}
	return nil
}

// Middleware rejects unauthorized requests and records the attempt under endpoint.
func (g *Guard) Middleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := g.Authorize(r)
			switch {
			case err == nil:
				metrics.IncAdminRequest(endpoint, "authorized")
				next.ServeHTTP(w, r)
			case errors.Is(err, errNotEnabled):
				metrics.IncAdminRequest(endpoint, "disabled")
				g.log.Error().Str("endpoint", endpoint).Msg("no credentials configured; refusing request")
				writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
			default:
				metrics.IncAdminRequest(endpoint, "unauthorized")
				l := logging.With(r.Context(), g.log)
				l.Warn().Err(err).Str("endpoint", endpoint).Msg("unauthorized request")
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			}
		})
	}
}
