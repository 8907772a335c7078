package jwt

import (
	"context"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/sync/errgroup"
)

// Claims are the verified contents of an access or refresh token. Subject
// carries the user id.
type Claims struct {
	Subject string
	Email   string
}

// TokenPair bundles one access and one refresh token issued together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type customClaims struct {
	Email string `json:"email"`
}

// Generator signs and verifies the two token classes. Access and refresh
// tokens use independent HS256 secrets and expirations.
type Generator struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewGenerator constructs a token generator from the two signing secrets.
func NewGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Generator {
	return &Generator{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GeneratePair issues an access and a refresh token for the user. The two
// signatures are independent, so they are produced concurrently.
func (g *Generator) GeneratePair(ctx context.Context, userID, email string) (TokenPair, error) {
	var pair TokenPair

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		token, err := sign(g.accessKey, g.accessTTL, userID, email)
		if err != nil {
			return fmt.Errorf("sign access token: %w", err)
		}
		pair.AccessToken = token
		return nil
	})
	eg.Go(func() error {
		token, err := sign(g.refreshKey, g.refreshTTL, userID, email)
		if err != nil {
			return fmt.Errorf("sign refresh token: %w", err)
		}
		pair.RefreshToken = token
		return nil
	})

	if err := eg.Wait(); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// VerifyAccess validates an access token signature and expiry.
func (g *Generator) VerifyAccess(token string) (Claims, error) {
	return verify(g.accessKey, token)
}

// VerifyRefresh validates a refresh token signature and expiry.
func (g *Generator) VerifyRefresh(token string) (Claims, error) {
	return verify(g.refreshKey, token)
}

func sign(key []byte, ttl time.Duration, userID, email string) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: key},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:  userID,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(customClaims{Email: email}).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}

func verify(key []byte, token string) (Claims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var custom customClaims
	if err := parsed.Claims(key, &std, &custom); err != nil {
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}

	if err := std.Validate(gojwt.Expected{Time: time.Now()}); err != nil {
		return Claims{}, fmt.Errorf("validate claims: %w", err)
	}

	return Claims{Subject: std.Subject, Email: custom.Email}, nil
}
