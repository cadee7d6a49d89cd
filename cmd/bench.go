package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	blazecache "github.com/Abiy-Samson/Blazegraph/cache"
	"github.com/Abiy-Samson/Blazegraph/rto"
)

// newBenchCommand runs a synthetic cache workload and a small RTO
// optimization, printing the resulting hit rate and chosen join order.
// This is a manual smoke-test tool, not a substitute for the package-level
// tests in cache/ and rto/.
func newBenchCommand(v *viper.Viper, stdout io.Writer) *cobra.Command {
	var keys int
	var repeatFraction float64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic cache + RTO workload and print a summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			eviction, err := evictionFromName(cfg.CacheEviction)
			if err != nil {
				return err
			}

			c := blazecache.New[string, int](blazecache.Options[string, int]{
				InitialCapacity: cfg.CacheInitialCapacity,
				Concurrency:     cfg.CacheConcurrency,
				LoadFactor:      cfg.CacheLoadFactor,
				Eviction:        eviction,
				Hasher:          blazecache.StringHasher,
				Equal:           func(a, b int) bool { return a == b },
			})

			hits, misses := runCacheWorkload(c, keys, repeatFraction)
			fmt.Fprintf(stdout, "cache: %d hits, %d misses, %d resident\n", hits, misses, c.Len())

			graph := benchJoinGraph()
			best, err := rto.Optimize(graph, cfg.RTODefaultLimit, uniformExecutor{})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "rto: chosen order %v, cost %d\n", best.VertexIDs(), best.SumEstCost())
			return nil
		},
	}
	cmd.Flags().IntVar(&keys, "keys", 10000, "number of distinct keys to insert")
	cmd.Flags().Float64Var(&repeatFraction, "repeat-fraction", 0.1, "fraction of keys re-read after insertion")
	return cmd
}

func runCacheWorkload(c *blazecache.Cache[string, int], keys int, repeatFraction float64) (hits, misses int) {
	for i := 0; i < keys; i++ {
		c.Put(strconv.Itoa(i), i)
	}
	repeatUpTo := int(float64(keys) * repeatFraction)
	for i := 0; i < repeatUpTo; i++ {
		if _, ok := c.Get(strconv.Itoa(i)); ok {
			hits++
		} else {
			misses++
		}
	}
	return hits, misses
}

func benchJoinGraph() *rto.JoinGraph {
	v := func(id int, name string, vars ...rto.Var) *rto.Vertex {
		return &rto.Vertex{
			ID:        id,
			Predicate: rto.Predicate{ID: name, Vars: vars},
			Sample:    rto.VertexSample{EstCard: 100, Estimate: rto.Exact},
		}
	}
	return &rto.JoinGraph{
		Vertices: []*rto.Vertex{
			v(0, "p0", "product", "offer"),
			v(1, "p1", "product", "label"),
			v(2, "p2", "product", "vendor"),
		},
	}
}
