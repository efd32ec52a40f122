// Package verifier checks JWT signatures against PEM-encoded X.509
// certificates published by identity providers.
package verifier
