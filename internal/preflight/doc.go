// Package preflight provides readiness checks for the directories and
// external services tvrecs depends on.
//
// The CLI "tvrecs status" command runs them before a user schedules
// recommendation runs. Each service check is gated by its configuration:
// disabled integrations are skipped rather than reported as failures.
package preflight
