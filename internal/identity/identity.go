// Package identity defines the stable key identifying one virtual user
// within a scenario. Feeds use it to index per-caller cursor state.
package identity

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ID identifies one concurrent logical caller (virtual user).
// It is a value type with structural equality and is safe to use as a map key.
type ID struct {
	Scenario string
	VU       int
}

// New builds the identity for the given virtual-user ordinal within a scenario.
// The result is stable for the life of that virtual user's participation.
func New(scenario string, vu int) ID {
	return ID{Scenario: scenario, VU: vu}
}

// String renders the identity as "scenario/ordinal" for logs and reports.
func (id ID) String() string {
	return id.Scenario + "/" + strconv.Itoa(id.VU)
}

// Hash returns a stable 64-bit hash of the identity, used by feed strategies
// that need a deterministic per-identity assignment.
func (id ID) Hash() uint64 {
	var d xxhash.Digest
	_, _ = d.WriteString(id.Scenario)
	_, _ = d.WriteString("/")
	_, _ = d.WriteString(strconv.Itoa(id.VU))
	return d.Sum64()
}
