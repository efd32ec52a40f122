package verifier

import (
	"crypto/rsa"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Verifier checks a token's signature against PEM key material. It checks
// the signature only; claims are validated before a verifier is called.
// Implementations return false on any error and never panic.
type Verifier interface {
	Verify(token *core.DecodedToken, keyMaterial string) bool
}

// Func adapts a function to the Verifier interface.
type Func func(token *core.DecodedToken, keyMaterial string) bool

// Verify calls f.
func (f Func) Verify(token *core.DecodedToken, keyMaterial string) bool {
	return f(token, keyMaterial)
}

// Never rejects every token. It stands in for providers without a verifier.
type Never struct{}

// Verify always returns false.
func (Never) Verify(*core.DecodedToken, string) bool {
	return false
}

// Google verifies Google Sign-In ID tokens. Google signs with RSA; the
// token's declared algorithm selects PKCS#1 v1.5 or PSS.
type Google struct{}

var googleAlgorithms = map[string]jwt.SigningMethod{
	"RS256": jwt.SigningMethodRS256,
	"RS384": jwt.SigningMethodRS384,
	"RS512": jwt.SigningMethodRS512,
	"PS256": jwt.SigningMethodPS256,
	"PS384": jwt.SigningMethodPS384,
	"PS512": jwt.SigningMethodPS512,
}

// Verify implements Verifier.
func (Google) Verify(token *core.DecodedToken, keyMaterial string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if token == nil {
		return false
	}
	method, found := googleAlgorithms[token.Header.Algorithm]
	if !found {
		return false
	}
	pub, err := publicKeyFromPEM(keyMaterial)
	if err != nil {
		return false
	}
	rsaKey, isRSA := pub.(*rsa.PublicKey)
	if !isRSA {
		return false
	}
	return method.Verify(string(token.SigningInput), token.Signature, rsaKey) == nil
}

// Firebase verifies Firebase Authentication ID tokens, which are always
// RS256.
type Firebase struct{}

// Verify implements Verifier.
func (Firebase) Verify(token *core.DecodedToken, keyMaterial string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if token == nil || token.Header.Algorithm != jwa.RS256().String() {
		return false
	}
	pub, err := publicKeyFromPEM(keyMaterial)
	if err != nil {
		return false
	}
	if _, isRSA := pub.(*rsa.PublicKey); !isRSA {
		return false
	}
	key, err := jwk.Import(pub)
	if err != nil {
		return false
	}
	_, err = jws.Verify([]byte(token.Raw), jws.WithKey(jwa.RS256(), key))
	return err == nil
}
