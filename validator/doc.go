/*
Package validator authenticates bearer tokens issued by external identity
providers such as Firebase Authentication and Google Sign-In.

A Validator runs a fixed sequence of checks and stops at the first failure:

 1. the Authorization header must be "Bearer <token>"
 2. the token must decode as a JWT with an exp claim
 3. exp must be later than now minus the allowed clock skew
 4. every aud must be an accepted audience
 5. iss must be a trusted issuer
 6. signing keys are refreshed from every enabled provider
 7. the token's kid must be published by one of them
 8. that provider's verifier must accept the signature

On success the token's full claim set becomes a core.Identity. Each failure
is a *core.Failure whose Reason names the stage that rejected the token.

	store, _ := keystore.New(keystore.WithProvider(core.Google, googleFetcher))
	v, err := validator.New(
	    validator.WithKeyStore(store),
	    validator.WithIssuers("https://accounts.google.com"),
	    validator.WithAudiences("client-1"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	outcome := v.AuthenticateRequest(r)
	if !outcome.OK() {
	    log.Println(outcome.Reason())
	}
*/
package validator
