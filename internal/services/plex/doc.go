// Package plex reads the television library and watch state from a Plex
// Media Server through its JSON API.
//
// A Client is bound to one token and one library section. Managed users get
// their own Client built with their own token, so watch state is always the
// state of the token owner.
package plex
