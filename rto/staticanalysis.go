package rto

// CanJoin reports whether two vertices' predicates share at least one
// variable position, without regard to any surrounding path or filter.
// It is symmetric by construction.
func CanJoin(a, b *Vertex) bool {
	for _, v := range a.Predicate.Vars {
		if b.Predicate.HasVar(v) {
			return true
		}
	}
	return false
}

// boundVars returns the set of variables bound by every vertex in path.
func boundVars(path []*Vertex) map[Var]struct{} {
	bound := make(map[Var]struct{})
	for _, v := range path {
		for _, x := range v.Predicate.Vars {
			bound[x] = struct{}{}
		}
	}
	return bound
}

// CanJoinUsingConstraints reports whether candidate can be joined onto path
// given the already-bound path variables, the variables candidate itself
// contributes, and the supplied filters: either the candidate shares a
// variable directly with some vertex already in the path, or some filter's
// variables are all already bound once candidate's own variables are added
// to the bound set.
func CanJoinUsingConstraints(path []*Vertex, candidate *Vertex, filters []*FilterConstraint) (bool, error) {
	if path == nil {
		return false, invalidArgument("rto: path must not be nil")
	}
	if len(path) == 0 {
		return false, invalidArgument("rto: path must not be empty")
	}
	if candidate == nil {
		return false, invalidArgument("rto: candidate vertex must not be nil")
	}
	for _, v := range path {
		if v == nil {
			return false, invalidArgument("rto: path must not contain a nil vertex")
		}
		if v == candidate {
			return false, invalidArgument("rto: candidate vertex is already in path")
		}
	}
	for _, f := range filters {
		if f == nil {
			return false, invalidArgument("rto: filters must not contain a nil element")
		}
	}

	for _, v := range path {
		if CanJoin(v, candidate) {
			return true, nil
		}
	}

	bound := boundVars(path)
	for _, x := range candidate.Predicate.Vars {
		bound[x] = struct{}{}
	}
	for _, f := range filters {
		if f.varsSubsetOf(bound) {
			return true, nil
		}
	}
	return false, nil
}

// GetJoinGraphConstraints attaches, for each position in path (0-indexed in
// path order), every filter from all whose variables first become fully
// bound at that position and that has not already been attached earlier.
// knownBoundVars seeds the bound set before position 0, reflecting
// variables the surrounding query plan has already bound. When
// pathIsComplete is false, a filter is attached only if it is eligible at
// or before the final path position; filters whose variables would only
// become bound by vertices outside the path are left unattached.
//
// The result maps path index to the filters attached there, in the order
// they appear in all. Every filter appears at most once across the map.
func GetJoinGraphConstraints(path []*Vertex, all []*FilterConstraint, knownBoundVars map[Var]struct{}, pathIsComplete bool) map[int][]*FilterConstraint {
	result := make(map[int][]*FilterConstraint)
	attached := make(map[*FilterConstraint]bool, len(all))

	bound := make(map[Var]struct{}, len(knownBoundVars))
	for v := range knownBoundVars {
		bound[v] = struct{}{}
	}

	for i, vertex := range path {
		for _, x := range vertex.Predicate.Vars {
			bound[x] = struct{}{}
		}
		for _, f := range all {
			if attached[f] {
				continue
			}
			if f.varsSubsetOf(bound) {
				result[i] = append(result[i], f)
				attached[f] = true
			}
		}
	}

	// pathIsComplete is accepted for signature parity with the executor
	// contract (see Path.AddEdge): a filter's variables are only ever
	// checked against variables bound by vertices actually present in
	// path, so a filter needing a variable contributed by a vertex
	// outside path is already left unattached above regardless of this
	// flag's value.
	return result
}
