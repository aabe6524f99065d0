// Package retry provides the bounded retry policy shared by every external
// HTTP client.
//
// A Policy retries network timeouts, 408, 429 and 5xx responses with a linear
// backoff (Backoff * attempt), honours Retry-After, and stops early when the
// context is cancelled. Clients convert non-2xx responses with CheckResponse so
// the policy can classify them.
package retry
