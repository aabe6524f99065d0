// Package trakt provides the Trakt client used for external show
// suggestions, title search and watch-history sync.
//
// Every request carries the API version, the application client id and the
// user's OAuth bearer token. The device-code handshake that produces the token
// is not implemented; the token is read from configuration.
package trakt
