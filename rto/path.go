package rto

// CostFunc computes a path's cost from its cumulative statistics. The
// default, SumEstCardCost, matches the observed production default; the
// choice is deliberately left open per DESIGN.md, exposing SumEstReadCost
// and SumEstCardAndReadCost as named alternatives rather than hardcoding
// one interpretation.
type CostFunc func(sumEstCard, sumEstRead int64) int64

// SumEstCardCost costs a path by its cumulative estimated cardinality
// alone. This is the default used by Optimize when no CostFunc is
// supplied.
func SumEstCardCost(sumEstCard, sumEstRead int64) int64 { return sumEstCard }

// SumEstReadCost costs a path by the cumulative number of tuples read.
func SumEstReadCost(sumEstCard, sumEstRead int64) int64 { return sumEstRead }

// SumEstCardAndReadCost costs a path by the sum of cumulative cardinality
// and tuples read.
func SumEstCardAndReadCost(sumEstCard, sumEstRead int64) int64 {
	return sumEstCard + sumEstRead
}

// Path is an ordered, duplicate-free sequence of vertices representing a
// candidate join order, together with the cumulative sample statistics
// produced by extending it one edge at a time. Paths are immutable once
// constructed: AddEdge returns a new Path rather than mutating the
// receiver.
type Path struct {
	vertices []*Vertex
	edge     EdgeSample

	sumEstCard int64
	sumEstRead int64
	cost       CostFunc
}

// NewPath constructs a single-vertex path. Its sample is exactly the
// vertex's own sample: no join has occurred yet.
func NewPath(v *Vertex, cost CostFunc) (*Path, error) {
	if v == nil {
		return nil, invalidArgument("rto: vertex must not be nil")
	}
	if cost == nil {
		cost = SumEstCardCost
	}
	return &Path{
		vertices:   []*Vertex{v},
		edge:       EdgeSample{Limit: v.Sample.Limit, EstRead: v.Sample.EstRead, EstCard: v.Sample.EstCard, Estimate: v.Sample.Estimate},
		sumEstCard: v.Sample.EstCard,
		sumEstRead: v.Sample.EstRead,
		cost:       cost,
	}, nil
}

// Vertices returns the path's vertices in join order. The slice must not be
// mutated by the caller.
func (p *Path) Vertices() []*Vertex { return p.vertices }

// Len returns the number of vertices in the path.
func (p *Path) Len() int { return len(p.vertices) }

// Contains reports whether v already appears in the path.
func (p *Path) Contains(v *Vertex) bool { return containsVertex(p.vertices, v) }

func containsVertex(path []*Vertex, v *Vertex) bool {
	for _, x := range path {
		if x == v {
			return true
		}
	}
	return false
}

// EdgeSample returns the sample produced by the path's most recent
// extension (or the bare vertex sample, for a length-1 path).
func (p *Path) EdgeSample() EdgeSample { return p.edge }

// SumEstCard returns the path's cumulative estimated cardinality.
func (p *Path) SumEstCard() int64 { return p.sumEstCard }

// SumEstRead returns the path's cumulative tuples-read estimate.
func (p *Path) SumEstRead() int64 { return p.sumEstRead }

// SumEstCost returns the path's cost under its configured CostFunc.
func (p *Path) SumEstCost() int64 { return p.cost(p.sumEstCard, p.sumEstRead) }

// VertexIDs returns the vertex identifiers along the path, in order.
func (p *Path) VertexIDs() []int {
	ids := make([]int, len(p.vertices))
	for i, v := range p.vertices {
		ids[i] = v.ID
	}
	return ids
}

// IsUnorderedVariant reports whether p and other visit the same set of
// vertices, irrespective of order. Paths that are unordered variants of
// each other compete in the same equivalence class during exploration.
func (p *Path) IsUnorderedVariant(other *Path) bool {
	if len(p.vertices) != len(other.vertices) {
		return false
	}
	for _, v := range p.vertices {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// BeginsWith reports whether prefix is a leading segment of p, matched by
// vertex identity in order.
func (p *Path) BeginsWith(prefix *Path) bool {
	if len(prefix.vertices) > len(p.vertices) {
		return false
	}
	for i, v := range prefix.vertices {
		if p.vertices[i] != v {
			return false
		}
	}
	return true
}

// AddEdge extends the path by one vertex, using the cutoff-join result
// executor.CutoffJoin computes from the path's current edge sample and the
// constraints eligible at the new position. The vertex must not already be
// present in the path.
func (p *Path) AddEdge(executor SamplingExecutor, limit int64, vnew *Vertex, constraints []*FilterConstraint, pathIsComplete bool) (*Path, error) {
	if vnew == nil {
		return nil, invalidArgument("rto: new vertex must not be nil")
	}
	if p.Contains(vnew) {
		return nil, invalidArgument("rto: vertex %d is already in the path", vnew.ID)
	}

	predicates := make([]Predicate, len(p.vertices)+1)
	for i, v := range p.vertices {
		predicates[i] = v.Predicate
	}
	predicates[len(p.vertices)] = vnew.Predicate

	edge, err := executor.CutoffJoin(CutoffJoinRequest{
		SourceSample:   p.edge,
		Predicates:     predicates,
		Constraints:    constraints,
		PathIsComplete: pathIsComplete,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}

	vertices := make([]*Vertex, len(p.vertices)+1)
	copy(vertices, p.vertices)
	vertices[len(p.vertices)] = vnew

	return &Path{
		vertices:   vertices,
		edge:       edge,
		sumEstCard: p.sumEstCard + edge.EstCard,
		sumEstRead: p.sumEstRead + edge.EstRead,
		cost:       p.cost,
	}, nil
}

// GetNewLimit computes the resampling limit to use if this path's current
// edge sample underflowed: double the current limit on Underflow, else
// grow it by the caller-supplied default increment.
func (p *Path) GetNewLimit(defaultIncrement int64) int64 {
	if p.edge.Estimate == Underflow {
		return p.edge.Limit * 2
	}
	return p.edge.Limit + defaultIncrement
}
