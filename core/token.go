package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxTokenSize bounds the raw token length accepted by DecodeToken.
// Provider ID tokens are a few KB.
const maxTokenSize = 64 * 1024

// TokenHeader holds the JOSE header fields the pipeline relies on.
type TokenHeader struct {
	KeyID     string
	Algorithm string
}

// TokenClaims holds the registered claims used for validation plus the
// complete claim set.
type TokenClaims struct {
	Issuer    string
	Audiences []string
	NotBefore *time.Time
	ExpiresAt time.Time
	Subject   string

	// All contains every claim in the payload, including the registered ones.
	All map[string]any
}

// DecodedToken is a JWT parsed without verifying its signature.
// Nothing in it may be trusted until a verifier accepts SigningInput and
// Signature.
type DecodedToken struct {
	Raw          string
	Header       TokenHeader
	Claims       TokenClaims
	SigningInput []byte
	Signature    []byte
}

var tokenParser = jwt.NewParser(jwt.WithJSONNumber())

// DecodeToken parses the three dot-separated segments of a compact JWS
// without verifying the signature. Errors wrap ErrMalformedToken.
func DecodeToken(raw string) (*DecodedToken, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrMalformedToken)
	}
	if len(raw) > maxTokenSize {
		return nil, fmt.Errorf("%w: token exceeds %d bytes", ErrMalformedToken, maxTokenSize)
	}
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: token must have three segments", ErrMalformedToken)
	}

	claims := jwt.MapClaims{}
	token, parts, err := tokenParser.ParseUnverified(raw, claims)
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if token == nil || len(parts) != 3 {
		return nil, fmt.Errorf("%w: could not split token", ErrMalformedToken)
	}

	signature, err := tokenParser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode signature: %v", ErrMalformedToken, err)
	}

	decoded := &DecodedToken{
		Raw:          raw,
		SigningInput: []byte(parts[0] + "." + parts[1]),
		Signature:    signature,
	}
	decoded.Header.KeyID, _ = token.Header["kid"].(string)
	decoded.Header.Algorithm, _ = token.Header["alg"].(string)
	if decoded.Header.Algorithm == "" {
		return nil, fmt.Errorf("%w: header has no alg", ErrMalformedToken)
	}

	if decoded.Claims, err = registeredClaims(claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return decoded, nil
}

func registeredClaims(claims jwt.MapClaims) (TokenClaims, error) {
	out := TokenClaims{All: map[string]any(claims)}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return out, err
	}
	if exp == nil {
		return out, errors.New("token has no exp claim")
	}
	out.ExpiresAt = exp.Time

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return out, err
	}
	if nbf != nil {
		t := nbf.Time
		out.NotBefore = &t
	}

	if out.Issuer, err = claims.GetIssuer(); err != nil {
		return out, err
	}
	if out.Subject, err = claims.GetSubject(); err != nil {
		return out, err
	}
	aud, err := claims.GetAudience()
	if err != nil {
		return out, err
	}
	out.Audiences = []string(aud)

	return out, nil
}
