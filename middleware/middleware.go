package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"bloodbank/globals"
	"bloodbank/logging"
	"bloodbank/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	FacilityType string `json:"facilityType,omitempty"`
	jwt.RegisteredClaims
}

// Revocations reports tokens invalidated by logout.
type Revocations interface {
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// Tokens issues and validates bearer tokens.
type Tokens struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	revoked Revocations
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// WithRevocations makes Authenticate reject tokens found in r.
func (t *Tokens) WithRevocations(r Revocations) *Tokens {
	t.revoked = r
	return t
}

// Issue signs a token for the given account.
func (t *Tokens) Issue(userID, role, facilityType string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:       userID,
		Role:         role,
		FacilityType: facilityType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ValidateJWT parses an "Authorization" header value.
func (t *Tokens) ValidateJWT(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, fmt.Errorf("invalid token format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, fmt.Errorf("unauthorized: incomplete claims")
	}
	return claims, nil
}

func withClaims(ctx context.Context, c *Claims) context.Context {
	ctx = context.WithValue(ctx, globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, c.Role)
	return context.WithValue(ctx, globals.FacilityTypeKey, c.FacilityType)
}

// Authenticate requires a valid bearer token and stores its claims in the request context.
func (t *Tokens) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		if header == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := t.ValidateJWT(header)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		if t.revoked != nil && claims.ID != "" {
			revoked, err := t.revoked.Revoked(r.Context(), claims.ID)
			if err != nil {
				logging.FromContext(r.Context()).Warn().Err(err).Msg("token revocation lookup failed")
			} else if revoked {
				utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, token revoked")
				return
			}
		}

		next(w, r.WithContext(withClaims(r.Context(), claims)), ps)
	}
}

// RequireRole authenticates and then admits only the listed roles.
func (t *Tokens) RequireRole(next httprouter.Handle, roles ...string) httprouter.Handle {
	return t.Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !slices.Contains(roles, utils.GetRoleFromRequest(r)) {
			utils.RespondWithError(w, http.StatusForbidden, "Access denied")
			return
		}
		next(w, r, ps)
	})
}

func (t *Tokens) Donor(next httprouter.Handle) httprouter.Handle {
	return t.RequireRole(next, globals.RoleDonor)
}

func (t *Tokens) Admin(next httprouter.Handle) httprouter.Handle {
	return t.RequireRole(next, globals.RoleAdmin)
}

// FacilityStatusFunc reports whether a facility account may act right now.
type FacilityStatusFunc func(ctx context.Context, facilityID string) (approved bool, err error)

// Facility admits approved facilities, optionally of the given types only.
// Approval is re-checked per request so a revoked facility loses access immediately.
func (t *Tokens) Facility(approved FacilityStatusFunc, types ...string) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return t.RequireRole(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if len(types) > 0 && !slices.Contains(types, utils.GetFacilityTypeFromRequest(r)) {
				utils.RespondWithError(w, http.StatusForbidden, "Access denied for this facility type")
				return
			}
			ok, err := approved(r.Context(), utils.GetUserIDFromRequest(r))
			if err != nil {
				utils.RespondWithAppError(w, r, err)
				return
			}
			if !ok {
				utils.RespondWithError(w, http.StatusForbidden, "Facility is not approved")
				return
			}
			next(w, r, ps)
		}, globals.RoleFacility)
	}
}
