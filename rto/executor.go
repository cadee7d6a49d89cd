package rto

// CutoffJoinRequest bundles the inputs to a single cutoff join: the
// existing path's sample, the full predicate list of the path being
// extended (including the new vertex's predicate, appended last), the
// constraints eligible for evaluation at this step, whether the path is
// already complete, and the row-count limit the executor must not exceed.
type CutoffJoinRequest struct {
	SourceSample   EdgeSample
	Predicates     []Predicate
	Constraints    []*FilterConstraint
	PathIsComplete bool
	Limit          int64
}

// SamplingExecutor performs the actual tuple scan behind a cutoff join. The
// engine treats it as a pure function of its request; any internal
// parallelism or I/O is opaque to the engine. Implementations should return
// a SamplerError-coded error (see the errors package) on scan failure so
// callers can distinguish sampler failures from optimizer-internal ones.
//
// Optimize invokes CutoffJoin concurrently across the independent (path,
// candidate-vertex) pairs within a single exploration round, so
// implementations must be safe for concurrent use.
type SamplingExecutor interface {
	CutoffJoin(req CutoffJoinRequest) (EdgeSample, error)
}
