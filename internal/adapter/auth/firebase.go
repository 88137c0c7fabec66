package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/golang-jwt/jwt/v5"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// KeySource resolves the RSA public key for a token key id.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// FirebaseVerifier verifies ID tokens minted by Firebase Authentication.
// It implements port.IdentityVerifier.
type FirebaseVerifier struct {
	projectID string
	keys      KeySource
	leeway    time.Duration
	now       func() time.Time
}

// NewFirebaseVerifier creates a delegated verifier for projectID. leeway is
// the clock-skew tolerance applied to iat, nbf and exp.
func NewFirebaseVerifier(projectID string, keys KeySource, leeway time.Duration) *FirebaseVerifier {
	return &FirebaseVerifier{
		projectID: projectID,
		keys:      keys,
		leeway:    leeway,
		now:       time.Now,
	}
}

// Mode returns port.AuthModeDelegated.
func (v *FirebaseVerifier) Mode() string { return port.AuthModeDelegated }

type firebaseClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Firebase struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

// Verify checks an RS256 ID token against the project's issuer and audience.
func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (*domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, port.ErrMissingCredential
	}

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(credential, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token header has no kid")
			}
			return v.keys.PublicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithLeeway(v.leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	if claims.Subject == "" {
		return nil, port.NewAuthError(port.AuthInvalid, errors.New("token has no subject"))
	}

	provider := claims.Firebase.SignInProvider
	if provider == "" {
		provider = "firebase"
	}

	return &domain.Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: provider,
	}, nil
}
