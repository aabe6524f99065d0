// Package notifications delivers run summaries via ntfy.
//
// The service publishes to the topic URL configured under [notifications] and
// degrades to a no-op when no topic is set. Event helpers cover the
// recommendation summary, Sonarr additions, Trakt history sync and fatal run
// errors so callers never build HTTP requests themselves.
package notifications
