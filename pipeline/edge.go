package pipeline

// Edge is a possible transition between two stages.
//
// Edges are evaluated in declaration order when a node returns no explicit
// route. An edge with a nil predicate always matches; otherwise it matches
// when When(state) is true. The first match wins.
type Edge[S any] struct {
	// From is the source stage id.
	From string

	// To is the destination stage id.
	To string

	// When gates the transition. Nil means unconditional.
	When Predicate[S]
}

// Predicate evaluates run state to decide whether an edge applies.
// Predicates must be pure: deterministic and side-effect free, so that a
// fixed state always yields the same stage sequence.
type Predicate[S any] func(state S) bool
