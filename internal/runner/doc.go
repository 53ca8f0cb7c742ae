// Package runner drives load-test scenarios against data feeds: it
// initializes every referenced feed exactly once through the registry,
// spawns virtual users with stable identities, paces their step
// invocations, and records read metrics for the run.
package runner
