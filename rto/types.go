// Package rto implements the runtime join-path exploration engine used by
// the query optimizer: cutoff-join sampling, incremental path extension,
// cost accounting, and constraint-aware edge admissibility.
package rto

import rtoerrors "github.com/Abiy-Samson/Blazegraph/errors"

// EstimateEnum classifies how an EdgeSample's row count relates to the true
// join output, as reported by the sampling executor.
type EstimateEnum int

const (
	// Normal is the default classification: the sample neither hit the
	// limit nor underflowed to zero.
	Normal EstimateEnum = iota
	// Exact means the source sample was itself exact and the join
	// produced no more than limit rows: the output row count is the
	// true cardinality.
	Exact
	// LowerBound means the join produced exactly limit rows; the true
	// cardinality may be larger (truncated by the cutoff).
	LowerBound
	// Underflow means the join produced zero rows from a source that was
	// not itself exact, so zero is not trustworthy as the true
	// cardinality -- it may simply mean the sample was too small.
	Underflow
)

func (e EstimateEnum) String() string {
	switch e {
	case Exact:
		return "Exact"
	case LowerBound:
		return "LowerBound"
	case Underflow:
		return "Underflow"
	default:
		return "Normal"
	}
}

// VertexSample is the cardinality estimate attached to a bare, unjoined
// vertex: what a source scan of that predicate alone would produce.
type VertexSample struct {
	Limit    int64
	EstRead  int64
	EstCard  int64
	Estimate EstimateEnum
}

// EdgeSample is the bounded sample produced by a cutoff join: the executor
// is treated as a pure function from (source sample, extended predicate
// list, eligible constraints, limit) to this result.
type EdgeSample struct {
	Limit    int64
	EstRead  int64
	EstCard  int64
	Estimate EstimateEnum
}

// Var is an opaque SPARQL variable identity. Two Vars are the same variable
// iff they compare equal.
type Var string

// Predicate identifies a triple pattern's predicate position and the
// variables bound at its subject/predicate/object positions. Only the
// variable set matters to static analysis; constant positions contribute
// no variables.
type Predicate struct {
	ID   string
	Vars []Var
}

// HasVar reports whether v appears in the predicate's variable set.
func (p Predicate) HasVar(v Var) bool {
	for _, x := range p.Vars {
		if x == v {
			return true
		}
	}
	return false
}

// Vertex wraps a predicate together with its initial, unjoined sample.
type Vertex struct {
	ID        int
	Predicate Predicate
	Sample    VertexSample
}

// FilterConstraint is a filter expression over a fixed set of variables.
// The engine never evaluates the expression itself -- only the variable
// set matters for admissibility analysis -- so the Expr field is opaque to
// this package and exists purely for the caller/executor's benefit.
type FilterConstraint struct {
	ID   string
	Vars []Var
	Expr interface{}
}

// HasVar reports whether v appears in the constraint's variable set.
func (f FilterConstraint) HasVar(v Var) bool {
	for _, x := range f.Vars {
		if x == v {
			return true
		}
	}
	return false
}

// varsSubsetOf reports whether every variable of f is in bound.
func (f FilterConstraint) varsSubsetOf(bound map[Var]struct{}) bool {
	for _, v := range f.Vars {
		if _, ok := bound[v]; !ok {
			return false
		}
	}
	return true
}

// JoinGraph is the immutable set of vertices and constraints under
// optimization.
type JoinGraph struct {
	Vertices    []*Vertex
	Constraints []*FilterConstraint
}

func (g *JoinGraph) vertexByID(id int) *Vertex {
	for _, v := range g.Vertices {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func invalidArgument(format string, args ...interface{}) error {
	return rtoerrors.Newf(rtoerrors.InvalidArgument, format, args...)
}
