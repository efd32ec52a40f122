package verifier

import (
	"errors"
	"fmt"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Registry maps provider kinds to their verifiers. Kinds without an entry
// resolve to Never.
type Registry struct {
	verifiers map[core.ProviderKind]Verifier
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry) error

// NewRegistry creates an empty Registry with the given verifiers.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{verifiers: make(map[core.ProviderKind]Verifier)}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return r, nil
}

// WithVerifier registers v for kind, replacing any earlier registration.
func WithVerifier(kind core.ProviderKind, v Verifier) RegistryOption {
	return func(r *Registry) error {
		if kind == core.Unknown {
			return errors.New("cannot register a verifier for the unknown provider")
		}
		if v == nil {
			return fmt.Errorf("verifier for %s cannot be nil", kind)
		}
		r.verifiers[kind] = v
		return nil
	}
}

// DefaultRegistry returns a Registry with the Google and Firebase verifiers.
func DefaultRegistry() *Registry {
	return &Registry{verifiers: map[core.ProviderKind]Verifier{
		core.Google:   Google{},
		core.Firebase: Firebase{},
	}}
}

// Lookup returns the verifier for kind, or Never.
func (r *Registry) Lookup(kind core.ProviderKind) Verifier {
	if r != nil {
		if v, ok := r.verifiers[kind]; ok {
			return v
		}
	}
	return Never{}
}
