package rto

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	rtoerrors "github.com/Abiy-Samson/Blazegraph/errors"
	"github.com/Abiy-Samson/Blazegraph/logger"
	"github.com/Abiy-Samson/Blazegraph/metrics"
)

// maxResampleAttempts bounds how many times a single extension is
// re-sampled at a larger limit before the engine accepts an underflowing
// estimate as-is. The resampling policy (Path.GetNewLimit) can otherwise
// grow the limit without bound against a pathologically sparse join.
const maxResampleAttempts = 4

type optimizeConfig struct {
	cost             CostFunc
	defaultIncrement int64
	knownBoundVars   map[Var]struct{}
	metrics          metrics.RTOSink
	logger           logger.Logger
}

// OptimizeOption customizes an Optimize call.
type OptimizeOption func(*optimizeConfig)

// WithCostFunc overrides the default sumEstCard cost function.
func WithCostFunc(f CostFunc) OptimizeOption {
	return func(c *optimizeConfig) { c.cost = f }
}

// WithDefaultIncrement overrides the limit increment used by the
// resampling policy on a non-underflowing re-sample. Defaults to the
// initial limit passed to Optimize.
func WithDefaultIncrement(n int64) OptimizeOption {
	return func(c *optimizeConfig) { c.defaultIncrement = n }
}

// WithMetrics observes round, resample and underflow counts, plus the
// final chosen path's cost, as Optimize runs. Defaults to a no-op sink.
func WithMetrics(sink metrics.RTOSink) OptimizeOption {
	return func(c *optimizeConfig) { c.metrics = sink }
}

// WithLogger observes routine resample/exhaustion/sampler-failure events as
// Optimize runs. Defaults to logger.NopLogger.
func WithLogger(l logger.Logger) OptimizeOption {
	return func(c *optimizeConfig) { c.logger = l }
}

// WithKnownBoundVars seeds the bound-variable set with variables already
// bound by the surrounding query plan, before any vertex in a path
// contributes its own variables.
func WithKnownBoundVars(vars ...Var) OptimizeOption {
	return func(c *optimizeConfig) {
		c.knownBoundVars = make(map[Var]struct{}, len(vars))
		for _, v := range vars {
			c.knownBoundVars[v] = struct{}{}
		}
	}
}

// Optimize explores join orders over graph, extending surviving paths one
// vertex per round, and returns the cheapest complete path. Extensions are
// grouped into equivalence classes by their unordered vertex set; within a
// class, constrained extensions (joinable by shared variables or eligible
// filters) are preferred over unconstrained cross-products, and among
// extensions of equal constrainedness the minimum-cost one survives.
//
// Optimize fails with a NoSolutions-coded error if every complete path's
// final edge sample has zero estimated cardinality from a non-exact
// source.
func Optimize(graph *JoinGraph, limit int64, executor SamplingExecutor, opts ...OptimizeOption) (*Path, error) {
	if graph == nil || len(graph.Vertices) == 0 {
		return nil, invalidArgument("rto: join graph must have at least one vertex")
	}
	if limit <= 0 {
		return nil, invalidArgument("rto: limit must be positive")
	}

	cfg := optimizeConfig{cost: SumEstCardCost, defaultIncrement: limit, metrics: metrics.NopRTOSink, logger: logger.NopLogger}
	for _, o := range opts {
		o(&cfg)
	}

	total := len(graph.Vertices)
	paths := make([]*Path, 0, total)
	for _, v := range graph.Vertices {
		p, err := NewPath(v, cfg.cost)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	for round := 1; round < total; round++ {
		cfg.metrics.Round()
		pathIsComplete := round+1 == total

		type candidate struct {
			path        *Path
			constrained bool
		}

		type task struct {
			p           *Path
			v           *Vertex
			constrained bool
			constraints []*FilterConstraint
		}
		var tasks []task
		for _, p := range paths {
			for _, v := range graph.Vertices {
				if p.Contains(v) {
					continue
				}
				constrained, err := CanJoinUsingConstraints(p.Vertices(), v, graph.Constraints)
				if err != nil {
					return nil, err
				}
				extendedVertices := append(append([]*Vertex{}, p.Vertices()...), v)
				attach := GetJoinGraphConstraints(extendedVertices, graph.Constraints, cfg.knownBoundVars, pathIsComplete)
				tasks = append(tasks, task{p: p, v: v, constrained: constrained, constraints: attach[len(p.Vertices())]})
			}
		}

		// Each task's cutoff join is independent of the others -- Path
		// values are immutable and every task reads a distinct (p, v)
		// pair -- so the sampling calls for a round fan out concurrently
		// and are merged back in deterministic task order afterward.
		extensions := make([]*Path, len(tasks))
		var group errgroup.Group
		for i, t := range tasks {
			i, t := i, t
			group.Go(func() error {
				extended, err := extendWithResampling(t.p, executor, limit, t.v, t.constraints, pathIsComplete, cfg.defaultIncrement, cfg.metrics, cfg.logger)
				if err != nil {
					return err
				}
				extensions[i] = extended
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}

		classes := make(map[string]*candidate)
		var order []string
		for i, extended := range extensions {
			constrained := tasks[i].constrained
			key := unorderedClassKey(extended)
			existing, ok := classes[key]
			if !ok {
				classes[key] = &candidate{path: extended, constrained: constrained}
				order = append(order, key)
				continue
			}
			if constrained != existing.constrained {
				if constrained {
					classes[key] = &candidate{path: extended, constrained: constrained}
				}
				continue
			}
			if extended.SumEstCost() < existing.path.SumEstCost() {
				classes[key] = &candidate{path: extended, constrained: constrained}
			}
		}

		if len(order) == 0 {
			break
		}
		next := make([]*Path, 0, len(order))
		for _, k := range order {
			next = append(next, classes[k].path)
		}
		paths = next
	}

	var best *Path
	for _, p := range paths {
		if p.Len() != total {
			continue
		}
		e := p.EdgeSample()
		if e.EstCard == 0 && e.Estimate != Exact {
			continue
		}
		if best == nil || p.SumEstCost() < best.SumEstCost() {
			best = p
		}
	}
	if best == nil {
		cfg.metrics.Underflow()
		return nil, rtoerrors.New(rtoerrors.NoSolutions, "rto: no complete join path has positive cardinality")
	}
	cfg.metrics.BestPathCost(best.SumEstCost())
	return best, nil
}

// extendWithResampling extends p by vnew, re-sampling at a growing limit
// (per Path.GetNewLimit) while the executor reports Underflow, up to
// maxResampleAttempts.
func extendWithResampling(p *Path, executor SamplingExecutor, limit int64, vnew *Vertex, constraints []*FilterConstraint, pathIsComplete bool, defaultIncrement int64, sink metrics.RTOSink, log logger.Logger) (*Path, error) {
	extended, err := p.AddEdge(executor, limit, vnew, constraints, pathIsComplete)
	if err != nil {
		logSamplerError(log, err)
		return nil, err
	}
	attempts := 0
	for ; extended.EdgeSample().Estimate == Underflow && attempts < maxResampleAttempts; attempts++ {
		sink.Resample()
		newLimit := extended.GetNewLimit(defaultIncrement)
		log.Debugf("rto: resampling vertex %d at limit %d (attempt %d)", vnew.ID, newLimit, attempts+1)
		resampled, err := p.AddEdge(executor, newLimit, vnew, constraints, pathIsComplete)
		if err != nil {
			logSamplerError(log, err)
			return nil, err
		}
		extended = resampled
	}
	if attempts == maxResampleAttempts && extended.EdgeSample().Estimate == Underflow {
		log.Warnf("rto: exhausted %d resample attempts for vertex %d, accepting underflowing estimate", maxResampleAttempts, vnew.ID)
	}
	return extended, nil
}

func logSamplerError(log logger.Logger, err error) {
	if rtoerrors.Is(err, rtoerrors.SamplerError) {
		log.Errorf("rto: sampler failure: %v", err)
	}
}

func unorderedClassKey(p *Path) string {
	ids := append([]int{}, p.VertexIDs()...)
	sort.Ints(ids)
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	return b.String()
}
