package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/platform/httpx"
	"github.com/kflex/dashboard/internal/platform/requestctx"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// User represents the authenticated staff member.
type User struct {
	UID   string
	Email string
	Roles []string
	Token string
}

// Authenticator resolves a bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError carries the reason code of a failed authentication attempt.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	// ReasonMissingToken indicates a request without credentials.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid indicates a malformed or rejected token.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired indicates an expired token; the client should refresh and retry.
	ReasonTokenExpired = "token_expired"
)

// PassthroughAuthenticator accepts any non-empty bearer token as an admin. Local
// development only.
func PassthroughAuthenticator() Authenticator {
	return passthroughAuthenticator{}
}

// Auth authenticates every request and attaches the User to the context. Failures are
// answered with a 401 JSON envelope carrying the reason code.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = PassthroughAuthenticator()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := parseBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				token = cookieToken(r)
			}
			if token == "" {
				unauthorized(ctx, w, ReasonMissingToken, ErrUnauthorized)
				return
			}

			user, err := authenticator.Authenticate(r, token)
			if err != nil || user == nil {
				reason := ReasonTokenInvalid
				var authErr *AuthError
				if errors.As(err, &authErr) && authErr.Reason != "" {
					reason = authErr.Reason
				}
				if err == nil {
					err = ErrUnauthorized
				}
				unauthorized(ctx, w, reason, err)
				return
			}

			ctx, _ = requestctx.SetActor(ctx, requestctx.Actor{ID: user.UID, Email: user.Email})
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userContextKey, user)))
		})
	}
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

func unauthorized(ctx context.Context, w http.ResponseWriter, reason string, err error) {
	requestctx.Logger(ctx).Info("auth failure", zap.String("reason", reason), zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError(reason, "authentication required", http.StatusUnauthorized))
}

func parseBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func cookieToken(r *http.Request) string {
	for _, name := range []string{"__session", "idToken"} {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		if val := strings.TrimSpace(c.Value); val != "" {
			return val
		}
	}
	return ""
}

type passthroughAuthenticator struct{}

func (passthroughAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	return &User{UID: token, Roles: []string{"admin"}, Token: token}, nil
}
