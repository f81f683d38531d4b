package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// FirebaseTokenVerifier abstracts the Firebase Admin SDK auth client.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator validates Firebase ID tokens and reads staff roles from the
// "role" and "roles" custom claims.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator constructs an Authenticator backed by verifier.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) (*FirebaseAuthenticator, error) {
	if verifier == nil {
		return nil, errors.New("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}, nil
}

// Authenticate verifies token and builds the User.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return nil, NewAuthError(ReasonTokenExpired, err)
		}
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	email, _ := verified.Claims["email"].(string)
	return &User{
		UID:   verified.UID,
		Email: strings.TrimSpace(email),
		Roles: claimStrings(verified.Claims["role"], verified.Claims["roles"]),
		Token: token,
	}, nil
}

// claimStrings flattens string, []any and {"role": true} claim shapes into a unique list.
func claimStrings(values ...any) []string {
	var result []string
	add := func(val string) {
		val = strings.TrimSpace(val)
		if val == "" {
			return
		}
		for _, existing := range result {
			if existing == val {
				return
			}
		}
		result = append(result, val)
	}

	for _, value := range values {
		switch v := value.(type) {
		case string:
			add(v)
		case []string:
			for _, item := range v {
				add(item)
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case map[string]any:
			for key, val := range v {
				if b, ok := val.(bool); ok && b {
					add(key)
				}
			}
		}
	}
	return result
}
