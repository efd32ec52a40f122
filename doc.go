/*
Package idpmiddleware provides net/http middleware that authenticates bearer
tokens issued by external identity providers such as Firebase
Authentication and Google Sign-In.

The package is the HTTP adapter over package core. Tokens are checked by a
validator.Validator, which pulls signing keys from a keystore.Store and
verifies signatures with the verifier registered for the key's provider.
Adapters for Gin, Echo and gRPC live under framework/.

# Quick Start

	store, err := keystore.New(
	    keystore.WithProvider(core.Firebase, firebaseFetcher),
	    keystore.WithProvider(core.Google, googleFetcher),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyStore(store),
	    validator.WithIssuers("https://securetoken.google.com/my-project"),
	    validator.WithAudiences("my-project"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	m, err := idpmiddleware.New(idpmiddleware.WithValidator(v))
	if err != nil {
	    log.Fatal(err)
	}
	http.Handle("/api/", m.CheckJWT(apiHandler))

# Accessing the Identity

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    id, err := idpmiddleware.GetIdentity(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }

	    var claims core.FirebaseClaims
	    if err := id.Decode(&claims); err != nil {
	        http.Error(w, "Bad claims", http.StatusInternalServerError)
	        return
	    }
	    fmt.Fprintf(w, "hello %s via %s", claims.Email, id.Provider)
	}

# Error Handling

DefaultErrorHandler answers 401 with a Bearer challenge and a JSON body
holding the failure reason code:

	{"message":"JWT is invalid.","reason":"expired"}

Custom handlers receive a *core.Failure and can inspect its Reason.

# Observability

WithLogger accepts a *slog.Logger or one of the zap, zerolog and logrus
adapters. WithMetrics and WithTracer take NewPrometheusMetrics and
NewOpenTelemetryTracer.
*/
package idpmiddleware
