package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

// Comparison is how one observed resource relates to the desired one.
type Comparison int

const (
	// NoMatch: the observed resource is something else.
	NoMatch Comparison = iota
	// Conflict: it occupies the desired identity slot with a different effect.
	Conflict
	// Match: it already satisfies the desired state.
	Match
)

// MatchResult is the decision taken for a whole observed listing.
type MatchResult int

const (
	ResultCreate MatchResult = iota
	ResultUpdate
	ResultMatch
)

func (m MatchResult) String() string {
	switch m {
	case ResultMatch:
		return "MATCH"
	case ResultUpdate:
		return "UPDATE"
	default:
		return "CREATE"
	}
}

// strategy bundles everything kind-specific the generic algorithm needs:
// D is the desired spec, O the observed resource and P the write payload.
type strategy[D, O, P any] struct {
	kind    Kind
	key     func(D) string
	id      func(O) string
	compare func(desired D, observed O) Comparison
	shape   func(D) P

	list   func(ctx context.Context, p dns.Provider, scope dns.Scope) ([]O, error)
	create func(ctx context.Context, p dns.Provider, scope dns.Scope, payload P) (string, error)
	// update is nil for kinds that are append/match only.
	update func(ctx context.Context, p dns.Provider, scope dns.Scope, id string, payload P) (string, error)
}

// classify scans observed in order; the first entry that is not a NoMatch
// decides. Conflicts only count for kinds that can be updated.
func classify[D, O, P any](s strategy[D, O, P], desired D, observed []O) (MatchResult, string) {
	for _, o := range observed {
		switch s.compare(desired, o) {
		case Match:
			return ResultMatch, s.id(o)
		case Conflict:
			if s.update != nil {
				return ResultUpdate, s.id(o)
			}
		}
	}
	return ResultCreate, ""
}

// run lists, classifies and issues at most one write.
func run[D, O, P any](ctx context.Context, r *Reconciler, s strategy[D, O, P], scope dns.Scope, desired D) Outcome {
	log := r.Log.WithValues("kind", string(s.kind), "key", s.key(desired), "scope", scope.String())
	plural := s.kind.display() + "s"

	if r.Provider == nil {
		return Failure(&Error{Kind: LookupError, Op: "failed to list " + plural, Err: errNotInitialized})
	}

	observed, err := s.list(ctx, r.Provider, scope)
	if err != nil {
		return Failure(&Error{Kind: LookupError, Op: "failed to list " + plural, Err: err})
	}

	result, id := classify(s, desired, observed)
	log.V(1).Info("classified", "observed", len(observed), "result", result.String(), "id", id)

	switch result {
	case ResultMatch:
		log.Info("already up to date", "id", id)
		return unchanged(id, fmt.Sprintf("%s already exists", s.kind.display()))

	case ResultUpdate:
		newID, err := s.update(ctx, r.Provider, scope, id, s.shape(desired))
		if err != nil {
			return Failure(&Error{Kind: WriteError, Op: fmt.Sprintf("failed to update %s %s", s.kind.display(), id), Err: err})
		}
		if newID == "" {
			newID = id
		}
		log.Info("updated", "id", newID)
		return changed(newID, fmt.Sprintf("%s updated", s.kind.display()))

	default:
		newID, err := s.create(ctx, r.Provider, scope, s.shape(desired))
		if err != nil {
			return Failure(&Error{Kind: WriteError, Op: fmt.Sprintf("failed to create %s %s", s.kind.display(), s.key(desired)), Err: err})
		}
		log.Info("created", "id", newID)
		return changed(newID, fmt.Sprintf("%s created", s.kind.display()))
	}
}

// sameName compares DNS names case-insensitively, ignoring a trailing dot.
func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// sameJSON compares two values by their canonical JSON encoding, so that a
// YAML-decoded int and an API-decoded float64 of the same number are equal.
func sameJSON(a, b interface{}) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
