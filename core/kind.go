package core

import (
	"fmt"
	"strings"
)

// ProviderKind identifies an external identity provider. The set is closed:
// it determines which key fetcher and signature verifier handle a token.
type ProviderKind int

const (
	Unknown ProviderKind = iota
	Firebase
	Google
	Github   // Reserved; no fetcher or verifier is implemented.
	Facebook // Reserved; no fetcher or verifier is implemented.
)

var providerNames = map[ProviderKind]string{
	Unknown:  "unknown",
	Firebase: "firebase",
	Google:   "google",
	Github:   "github",
	Facebook: "facebook",
}

// String returns the lowercase name of the provider kind.
func (k ProviderKind) String() string {
	if name, ok := providerNames[k]; ok {
		return name
	}
	return fmt.Sprintf("provider(%d)", int(k))
}

// ParseProviderKind maps a provider name to its kind. Matching is
// case-insensitive. Unrecognised names return Unknown and an error.
func ParseProviderKind(name string) (ProviderKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range providerNames {
		if kind != Unknown && n == name {
			return kind, nil
		}
	}
	return Unknown, fmt.Errorf("unknown identity provider %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k ProviderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ProviderKind) UnmarshalText(text []byte) error {
	kind, err := ParseProviderKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
