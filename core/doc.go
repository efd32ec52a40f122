/*
Package core provides the framework-agnostic authentication types shared by
the key store, the validation pipeline and the transport adapters.

# Architecture

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (net/http, Gin, Echo, gRPC)                │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Core (THIS PACKAGE)                │
	│  • Credentials optional logic               │
	│  • Outcome logging, metrics, spans          │
	│  • Identity and failure taxonomy            │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Authenticator (validator package)  │
	│  extract → decode → exp → aud → iss →       │
	│  refresh keys → locate kid → verify         │
	└─────────────────────────────────────────────┘

# Basic Usage

	v, err := validator.New(
	    validator.WithKeyStore(store),
	    validator.WithIssuers("https://accounts.google.com"),
	    validator.WithAudiences("client-1"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	c, err := core.New(core.WithAuthenticator(v))
	if err != nil {
	    log.Fatal(err)
	}

	id, err := c.CheckAuthorization(ctx, r.Header.Get("Authorization"))

# Error Handling

Every authentication failure is a *Failure carrying a FailureReason:

	var failure *core.Failure
	if errors.As(err, &failure) {
	    switch failure.Reason {
	    case core.ReasonExpired:
	    case core.ReasonUnknownKeySignature:
	    }
	}

errors.Is(err, core.ErrJWTMissing) matches a missing header and
errors.Is(err, core.ErrJWTInvalid) matches every other reason.

# Context Helpers

	ctx = core.SetIdentity(ctx, id)
	id, err := core.IdentityFromContext(ctx)
*/
package core
