package adoption

import (
	"time"

	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
)

// Outcome says how a desired key definition relates to the remote listing.
type Outcome string

const (
	// AdoptedExact: a remote key matches name, description, actions,
	// indexes and expiry.
	AdoptedExact Outcome = "AdoptedExact"
	// AdoptedRelaxed: a remote key matches actions, indexes and expiry;
	// name and description differ. Guards against keys created by hand or
	// by a prior CR with cosmetic differences.
	AdoptedRelaxed Outcome = "AdoptedRelaxed"
	NotFound       Outcome = "NotFound"
)

// Desired is a key definition to match against remote keys. Nil name and
// description act as wildcards.
type Desired struct {
	Name        *string
	Description *string
	Actions     []string
	Indexes     []string
	// RFC3339; nil means any expiry is acceptable
	ExpiresAt *string
}

// Result of resolving a desired definition against a remote listing.
type Result struct {
	Outcome Outcome
	// Key is the adopted remote key; nil when Outcome is NotFound.
	Key *meiliclient.Key
}

// Resolve matches desired against the remote listing, preferring an exact
// match over a relaxed one. It has no side effects; callers decide what to
// do with the result.
func Resolve(desired Desired, remote []meiliclient.Key) Result {
	for i := range remote {
		if MatchesExact(desired, &remote[i]) {
			return Result{Outcome: AdoptedExact, Key: &remote[i]}
		}
	}
	for i := range remote {
		if MatchesRelaxed(desired, &remote[i]) {
			return Result{Outcome: AdoptedRelaxed, Key: &remote[i]}
		}
	}
	return Result{Outcome: NotFound}
}

// MatchesExact reports whether key satisfies desired on every field.
func MatchesExact(desired Desired, key *meiliclient.Key) bool {
	if !sameStringOpt(desired.Name, key.Name) {
		return false
	}
	if !sameStringOpt(desired.Description, key.Description) {
		return false
	}
	return MatchesRelaxed(desired, key)
}

// MatchesRelaxed reports whether key satisfies desired on the functional
// fields only: actions, indexes and expiry.
func MatchesRelaxed(desired Desired, key *meiliclient.Key) bool {
	if !eqUnordered(desired.Actions, key.Actions) {
		return false
	}
	if !eqUnordered(desired.Indexes, key.Indexes) {
		return false
	}
	return sameExpiry(desired.ExpiresAt, key.ExpiresAt)
}

// sameStringOpt treats an absent desired value as a wildcard; a set value
// must match.
func sameStringOpt(desired, actual *string) bool {
	if desired == nil {
		return true
	}
	return actual != nil && *desired == *actual
}

// sameExpiry compares RFC3339 timestamps as instants, so representations
// with different offsets still compare equal.
func sameExpiry(desired, actual *string) bool {
	if desired == nil {
		return true
	}
	if actual == nil {
		return false
	}
	dt, err := time.Parse(time.RFC3339, *desired)
	if err != nil {
		return false
	}
	at, err := time.Parse(time.RFC3339, *actual)
	if err != nil {
		return false
	}
	return dt.Equal(at)
}

func eqUnordered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}
