// Package retry wraps fallible operations with attempt limits and backoff.
//
// Retries are driven by the error's class: network, rate limit and server
// errors are retried with exponential backoff and jitter, while auth,
// not-found and parsing failures return immediately since another attempt
// cannot change the outcome. Context cancellation aborts the wait between
// attempts.
//
// Usage:
//
//	cfg := retry.FromConfig(ctx, appConfig.Retry, log)
//
//	snapshot, err := retry.DoWithResult(func() (*profile.Snapshot, error) {
//	    return client.FetchSnapshot(ctx, username)
//	}, cfg)
package retry
