package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	blazecache "github.com/Abiy-Samson/Blazegraph/cache"
	"github.com/Abiy-Samson/Blazegraph/config"
	"github.com/Abiy-Samson/Blazegraph/metrics"
	"github.com/Abiy-Samson/Blazegraph/rto"
)

// newServeCommand starts a minimal operational HTTP surface over an
// in-process demo cache and a stub RTO sampling executor, grounded on
// http/handler.go's gorilla/mux router construction. This is not a SPARQL
// endpoint: the query grammar and evaluation layer remain out of scope.
func newServeCommand(v *viper.Viper, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /cache/stats, /rto/optimize and /metrics over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			sink := metrics.NewRegistry(reg)

			eviction, err := evictionFromName(cfg.CacheEviction)
			if err != nil {
				return err
			}
			c := blazecache.New[string, string](blazecache.Options[string, string]{
				InitialCapacity: cfg.CacheInitialCapacity,
				Concurrency:     cfg.CacheConcurrency,
				LoadFactor:      cfg.CacheLoadFactor,
				Eviction:        eviction,
				Hasher:          blazecache.StringHasher,
				Equal:           func(a, b string) bool { return a == b },
				Metrics:         sink,
			})

			router := mux.NewRouter()
			router.HandleFunc("/cache/stats", cacheStatsHandler(c)).Methods(http.MethodGet)
			router.HandleFunc("/rto/optimize", rtoOptimizeHandler(cfg, sink)).Methods(http.MethodPost)
			router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

			fmt.Fprintf(stdout, "listening on %s\n", cfg.MetricsBindAddr)
			return http.ListenAndServe(cfg.MetricsBindAddr, router)
		},
	}
}

func cacheStatsHandler(c *blazecache.Cache[string, string]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.ReportSegmentMetrics()
		writeJSON(w, map[string]any{
			"len":      c.Len(),
			"is_empty": c.IsEmpty(),
		})
	}
}

// optimizeRequest is a deliberately tiny join-graph description for
// smoke-testing Optimize over HTTP; it is not a SPARQL parser.
type optimizeRequest struct {
	Limit    int64 `json:"limit"`
	Vertices []struct {
		ID       int      `json:"id"`
		Name     string   `json:"name"`
		Vars     []string `json:"vars"`
		EstCard  int64    `json:"est_card"`
	} `json:"vertices"`
}

func rtoOptimizeHandler(cfg config.Config, sink metrics.RTOSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req optimizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Limit <= 0 {
			req.Limit = cfg.RTODefaultLimit
		}

		graph := &rto.JoinGraph{}
		for _, v := range req.Vertices {
			vars := make([]rto.Var, len(v.Vars))
			for i, s := range v.Vars {
				vars[i] = rto.Var(s)
			}
			graph.Vertices = append(graph.Vertices, &rto.Vertex{
				ID:        v.ID,
				Predicate: rto.Predicate{ID: v.Name, Vars: vars},
				Sample:    rto.VertexSample{EstCard: v.EstCard, Estimate: rto.Exact},
			})
		}

		best, err := rto.Optimize(graph, req.Limit, uniformExecutor{}, rto.WithMetrics(sink))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, map[string]any{
			"vertex_ids": best.VertexIDs(),
			"cost":       best.SumEstCost(),
		})
	}
}

// uniformExecutor is a placeholder SamplingExecutor for the demo endpoint:
// it reports a fixed, non-zero cardinality for every cutoff join so the
// endpoint is exercisable without a real predicate scanner behind it.
type uniformExecutor struct{}

func (uniformExecutor) CutoffJoin(req rto.CutoffJoinRequest) (rto.EdgeSample, error) {
	return rto.EdgeSample{Limit: req.Limit, EstRead: 1, EstCard: 1, Estimate: rto.Normal}, nil
}

func evictionFromName(name string) (blazecache.Eviction, error) {
	switch name {
	case "none":
		return blazecache.EvictionNone, nil
	case "lru":
		return blazecache.EvictionLRU, nil
	case "lirs", "":
		return blazecache.EvictionLIRS, nil
	default:
		return 0, fmt.Errorf("rto-cached: unknown eviction strategy %q", name)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
