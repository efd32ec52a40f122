// Package config loads the host configuration for the authentication
// middleware from the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Well-known issuers of Google Sign-In ID tokens.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// firebaseIssuerPrefix is followed by the Firebase project ID.
const firebaseIssuerPrefix = "https://securetoken.google.com/"

// Config is the host configuration. List values are separated by ';'.
type Config struct {
	// Providers to accept tokens from. ENV: IDP_PROVIDERS
	Providers []string `env:"IDP_PROVIDERS,default=firebase;google" validate:"required,min=1,dive,required"`
	// FirebaseProjectID derives the Firebase issuer and audience. ENV: FIREBASE_PROJECT_ID
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	// ValidIssuers accepted in addition to the derived ones. ENV: IDP_VALID_ISSUERS
	ValidIssuers []string `env:"IDP_VALID_ISSUERS" validate:"dive,required"`
	// ValidAudiences accepted in addition to the derived ones. ENV: IDP_VALID_AUDIENCES
	ValidAudiences []string `env:"IDP_VALID_AUDIENCES" validate:"dive,required"`
	// ClockSkew tolerated when checking expiry. ENV: IDP_CLOCK_SKEW
	ClockSkew time.Duration `env:"IDP_CLOCK_SKEW,default=0s" validate:"gte=0"`
	// RefreshSchedule is the cron spec of the background key refresh. ENV: IDP_REFRESH_SCHEDULE
	RefreshSchedule string `env:"IDP_REFRESH_SCHEDULE,default=@every 5m" validate:"required"`
	// FetchTimeout bounds a single signing key fetch. ENV: IDP_FETCH_TIMEOUT
	FetchTimeout time.Duration `env:"IDP_FETCH_TIMEOUT,default=30s" validate:"gt=0"`
	// HTTPAddr the demo host listens on. ENV: HTTP_ADDR
	HTTPAddr string `env:"HTTP_ADDR,default=:8080" validate:"required"`
	// LogLevel is one of debug, info, warn, error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
}

// TrustBoundary is the set of providers, issuers and audiences the
// validator accepts.
type TrustBoundary struct {
	Providers []core.ProviderKind
	Issuers   []string
	Audiences []string
}

var validate = validator.New()

// Load reads the optional dotenv files, then decodes and validates the
// environment. Files that do not exist are ignored; variables already set
// in the environment win over file values.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, f := range dotenvFiles {
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that every provider name is known.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.ProviderKinds(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ProviderKinds parses Providers, dropping duplicates and keeping order.
func (c *Config) ProviderKinds() ([]core.ProviderKind, error) {
	kinds := make([]core.ProviderKind, 0, len(c.Providers))
	for _, name := range c.Providers {
		kind, err := core.ParseProviderKind(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// TrustBoundary combines the explicit issuers and audiences with those
// implied by the enabled providers. Firebase contributes
// https://securetoken.google.com/<project> and <project> when
// FirebaseProjectID is set. Google contributes its two issuer spellings.
func (c *Config) TrustBoundary() (TrustBoundary, error) {
	kinds, err := c.ProviderKinds()
	if err != nil {
		return TrustBoundary{}, err
	}

	tb := TrustBoundary{
		Providers: kinds,
		Issuers:   slices.Clone(c.ValidIssuers),
		Audiences: slices.Clone(c.ValidAudiences),
	}
	if slices.Contains(kinds, core.Firebase) && c.FirebaseProjectID != "" {
		tb.Issuers = append(tb.Issuers, firebaseIssuerPrefix+c.FirebaseProjectID)
		tb.Audiences = append(tb.Audiences, c.FirebaseProjectID)
	}
	if slices.Contains(kinds, core.Google) {
		tb.Issuers = append(tb.Issuers, googleIssuers...)
	}

	tb.Issuers = dedupe(tb.Issuers)
	tb.Audiences = dedupe(tb.Audiences)
	return tb, nil
}

func dedupe(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
