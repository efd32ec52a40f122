/*
Package keystore caches the public signing keys of the supported identity
providers.

Each provider publishes its keys as a JSON object mapping key IDs to
PEM-encoded X.509 certificates. A Store keeps at most one SigningKeySet per
provider and re-fetches it when its Cache-Control lifetime has passed:

	expiresAt = fetchedAt + max-age - Age

A response without max-age produces a set that is stale immediately, so
every lookup fetches again. This is logged at Warn and counted in
idp_keystore_uncacheable_total.

Fetches for the same provider are coalesced with singleflight, and readers
only ever see whole sets. When a fetch fails the old set is kept but never
served once expired.

A Refresher can run on a cron schedule to re-fetch sets shortly before they
expire:

	r, err := keystore.NewRefresher(store, keystore.WithSchedule("@every 5m"))
	if err != nil {
	    log.Fatal(err)
	}
	_ = r.Start(ctx)
	defer r.Stop(context.Background())
*/
package keystore
