// Package idptest provides signing keys, certificates and a fake
// certificate endpoint for tests.
package idptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer holds an RSA key pair and a self-signed certificate for it.
type Signer struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
	CertPEM    string
}

// NewSigner generates a 2048-bit RSA key and a self-signed certificate.
func NewSigner(tb testing.TB, kid string) *Signer {
	tb.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		tb.Fatalf("create certificate: %v", err)
	}

	return &Signer{
		KeyID:      kid,
		PrivateKey: key,
		CertPEM:    string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}
}

// PublicKeyPEM returns the public key as a PKIX PEM block.
func (s *Signer) PublicKeyPEM(tb testing.TB) string {
	tb.Helper()
	der, err := x509.MarshalPKIXPublicKey(&s.PrivateKey.PublicKey)
	if err != nil {
		tb.Fatalf("marshal public key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// Sign signs claims with RS256 and the signer's kid.
func (s *Signer) Sign(tb testing.TB, claims map[string]any) string {
	tb.Helper()
	return s.SignWith(tb, jwt.SigningMethodRS256, claims)
}

// SignWith signs claims with method and the signer's kid.
func (s *Signer) SignWith(tb testing.TB, method jwt.SigningMethod, claims map[string]any) string {
	tb.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims(claims))
	if s.KeyID != "" {
		token.Header["kid"] = s.KeyID
	}
	raw, err := token.SignedString(s.PrivateKey)
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return raw
}

// Claims returns a valid claim set for issuer and audience expiring in an hour.
func Claims(issuer, audience, subject string) map[string]any {
	now := time.Now()
	return map[string]any{
		"iss": issuer,
		"aud": audience,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// CertServer serves a kid -> certificate map the way Google does.
type CertServer struct {
	*httptest.Server

	mu           sync.Mutex
	certs        map[string]string
	cacheControl string
	status       int
	requests     atomic.Int32
}

// NewCertServer starts a server publishing the signers' certificates with
// the given Cache-Control value. It is closed when the test ends.
func NewCertServer(tb testing.TB, cacheControl string, signers ...*Signer) *CertServer {
	tb.Helper()
	cs := &CertServer{cacheControl: cacheControl, status: http.StatusOK}
	cs.SetSigners(signers...)
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.serve))
	tb.Cleanup(cs.Close)
	return cs
}

// SetSigners replaces the published certificates.
func (cs *CertServer) SetSigners(signers ...*Signer) {
	certs := make(map[string]string, len(signers))
	for _, s := range signers {
		certs[s.KeyID] = s.CertPEM
	}
	cs.mu.Lock()
	cs.certs = certs
	cs.mu.Unlock()
}

// SetStatus makes the server answer with status and no body.
func (cs *CertServer) SetStatus(status int) {
	cs.mu.Lock()
	cs.status = status
	cs.mu.Unlock()
}

// Requests returns how many requests were served.
func (cs *CertServer) Requests() int {
	return int(cs.requests.Load())
}

func (cs *CertServer) serve(w http.ResponseWriter, _ *http.Request) {
	cs.requests.Add(1)

	cs.mu.Lock()
	status, certs, cacheControl := cs.status, cs.certs, cs.cacheControl
	cs.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(certs); err != nil {
		http.Error(w, fmt.Sprintf("encode: %v", err), http.StatusInternalServerError)
	}
}
