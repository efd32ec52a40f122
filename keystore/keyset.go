package keystore

import (
	"maps"
	"slices"
	"time"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// SigningKeySet is one provider's signing keys as returned by a single fetch.
// A set is immutable once published by the Store; a refresh replaces the
// whole set.
type SigningKeySet struct {
	Kind core.ProviderKind

	// Keys maps a key ID to its PEM-encoded certificate.
	Keys map[string]string

	FetchedAt time.Time
	ExpiresAt time.Time

	// Cacheable is false when the response carried no max-age directive.
	// Such a set expires at FetchedAt.
	Cacheable bool
}

// Expired reports whether the set is no longer fresh at now.
func (s *SigningKeySet) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Key returns the PEM material for kid.
func (s *SigningKeySet) Key(kid string) (string, bool) {
	pem, ok := s.Keys[kid]
	return pem, ok
}

// Len returns the number of keys in the set.
func (s *SigningKeySet) Len() int {
	return len(s.Keys)
}

// KeyIDs returns the key IDs in sorted order.
func (s *SigningKeySet) KeyIDs() []string {
	return slices.Sorted(maps.Keys(s.Keys))
}

// Snapshot is a point-in-time view over several providers' key sets, in
// the Store's configured provider order.
type Snapshot struct {
	order []core.ProviderKind
	sets  map[core.ProviderKind]*SigningKeySet
}

func newSnapshot(order []core.ProviderKind, sets map[core.ProviderKind]*SigningKeySet) Snapshot {
	snap := Snapshot{sets: make(map[core.ProviderKind]*SigningKeySet, len(sets))}
	for _, kind := range order {
		if set, ok := sets[kind]; ok && set != nil {
			snap.order = append(snap.order, kind)
			snap.sets[kind] = set
		}
	}
	return snap
}

// NewSnapshot builds a Snapshot from sets, ordered by their position in
// sets. Later entries of the same kind replace earlier ones.
func NewSnapshot(sets ...*SigningKeySet) Snapshot {
	order := make([]core.ProviderKind, 0, len(sets))
	byKind := make(map[core.ProviderKind]*SigningKeySet, len(sets))
	for _, set := range sets {
		if set == nil {
			continue
		}
		if _, seen := byKind[set.Kind]; !seen {
			order = append(order, set.Kind)
		}
		byKind[set.Kind] = set
	}
	return newSnapshot(order, byKind)
}

// Lookup scans the sets in order and returns the first provider holding kid.
func (s Snapshot) Lookup(kid string) (core.ProviderKind, string, bool) {
	if kid == "" {
		return core.Unknown, "", false
	}
	for _, kind := range s.order {
		if pem, ok := s.sets[kind].Key(kid); ok {
			return kind, pem, true
		}
	}
	return core.Unknown, "", false
}

// Get returns the set for kind.
func (s Snapshot) Get(kind core.ProviderKind) (*SigningKeySet, bool) {
	set, ok := s.sets[kind]
	return set, ok
}

// Kinds returns the providers present in the snapshot, in order.
func (s Snapshot) Kinds() []core.ProviderKind {
	return slices.Clone(s.order)
}

// Len returns the number of provider sets in the snapshot.
func (s Snapshot) Len() int {
	return len(s.order)
}
