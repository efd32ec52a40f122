package keystore

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxKeySetLifetime caps max-age and Age so that a misbehaving endpoint
// cannot pin a key set indefinitely.
const MaxKeySetLifetime = 7 * 24 * time.Hour

// ExpiresAt computes when a fetched key set stops being fresh:
// now + max-age - Age. The Age header defaults to zero.
//
// When the response has no usable max-age directive it returns (now, false):
// the set is treated as non-cacheable and is stale as soon as it is stored.
func ExpiresAt(now time.Time, header http.Header) (time.Time, bool) {
	maxAge, ok := parseMaxAge(strings.Join(header.Values("Cache-Control"), ","))
	if !ok {
		return now, false
	}
	return now.Add(maxAge - parseAge(header.Get("Age"))), true
}

// parseMaxAge extracts max-age from a Cache-Control value. Negative or
// non-numeric values are treated as absent. Values above MaxKeySetLifetime,
// including ones that overflow int64, are clamped to it.
func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(directive), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		seconds, ok := parseSeconds(strings.Trim(strings.TrimSpace(value), `"`))
		if !ok {
			continue
		}
		return seconds, true
	}
	return 0, false
}

func parseAge(age string) time.Duration {
	seconds, ok := parseSeconds(strings.TrimSpace(age))
	if !ok {
		return 0
	}
	return seconds
}

// parseSeconds parses a non-negative delta-seconds value, clamped to
// MaxKeySetLifetime.
func parseSeconds(value string) (time.Duration, bool) {
	seconds, err := strconv.ParseInt(value, 10, 64)
	if errors.Is(err, strconv.ErrRange) && seconds > 0 {
		return MaxKeySetLifetime, true
	}
	if err != nil || seconds < 0 {
		return 0, false
	}
	if seconds > int64(MaxKeySetLifetime/time.Second) {
		return MaxKeySetLifetime, true
	}
	return time.Duration(seconds) * time.Second, true
}
