package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"ragrec/internal/adapter/index"
	"ragrec/internal/adapter/vecmath"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/port"
)

// fixedEmbedder serves precomputed vectors by item id.
type fixedEmbedder struct {
	dim  int
	vecs map[string][]float32
}

func (e *fixedEmbedder) EmbedItems(_ context.Context, items []domain.Item) [][]float32 {
	out := make([][]float32, len(items))
	for i, it := range items {
		out[i] = e.vecs[it.ID]
	}
	return out
}

func (e *fixedEmbedder) Dimension() int {
	return e.dim
}

type result struct {
	size        int
	exactBuild  time.Duration
	hnswBuild   time.Duration
	exactSearch time.Duration
	hnswSearch  time.Duration
	recall      float64
}

func main() {
	sizesFlag := flag.String("sizes", "50,100,500,1000", "comma-separated catalog sizes")
	dim := flag.Int("dim", 384, "vector dimension")
	queries := flag.Int("queries", 100, "queries per size")
	topK := flag.Int("k", 10, "results per query")
	efSearch := flag.Int("ef", 50, "HNSW ef_search")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	logging.Init(logging.Config{Level: "warn", Format: "console"})

	sizes, err := parseSizes(*sizesFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SIMILARITY INDEX BENCHMARK")
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("Dimension: %d  Queries: %d  k: %d  ef_search: %d\n\n", *dim, *queries, *topK, *efSearch)

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	var results []result
	for _, n := range sizes {
		r, err := run(rng, n, *dim, *queries, *topK, index.Options{EfSearch: *efSearch, Seed: *seed})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at size %d: %v\n", n, err)
			os.Exit(1)
		}
		results = append(results, r)
	}

	fmt.Printf("%-8s %-14s %-14s %-14s %-14s %-8s\n", "items", "exact build", "hnsw build", "exact query", "hnsw query", "recall")
	fmt.Println(strings.Repeat("-", 78))
	for _, r := range results {
		fmt.Printf("%-8d %-14s %-14s %-14s %-14s %.3f\n",
			r.size, r.exactBuild.Round(time.Microsecond), r.hnswBuild.Round(time.Microsecond),
			r.exactSearch.Round(time.Microsecond), r.hnswSearch.Round(time.Microsecond), r.recall)
	}
}

func run(rng *rand.Rand, n, dim, queries, k int, opts index.Options) (result, error) {
	ctx := context.Background()
	res := result{size: n}

	emb := &fixedEmbedder{dim: dim, vecs: make(map[string][]float32, n)}
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{ID: "item-" + strconv.Itoa(i)}
		emb.vecs[items[i].ID] = randomUnit(rng, dim)
	}

	exact := index.NewExact(emb)
	hnsw := index.NewHNSW(emb, opts)

	var err error
	if res.exactBuild, err = timeBuild(ctx, exact, items); err != nil {
		return res, err
	}
	if res.hnswBuild, err = timeBuild(ctx, hnsw, items); err != nil {
		return res, err
	}

	var hits, total int
	for q := 0; q < queries; q++ {
		query := randomUnit(rng, dim)

		start := time.Now()
		want, err := exact.Search(query, k, nil)
		if err != nil {
			return res, err
		}
		res.exactSearch += time.Since(start)

		start = time.Now()
		got, err := hnsw.Search(query, k, nil)
		if err != nil {
			return res, err
		}
		res.hnswSearch += time.Since(start)

		truth := make(map[string]struct{}, len(want))
		for _, w := range want {
			truth[w.Item.ID] = struct{}{}
		}
		for _, g := range got {
			if _, ok := truth[g.Item.ID]; ok {
				hits++
			}
		}
		total += len(want)
	}

	if queries > 0 {
		res.exactSearch /= time.Duration(queries)
		res.hnswSearch /= time.Duration(queries)
	}
	if total > 0 {
		res.recall = float64(hits) / float64(total)
	}
	return res, nil
}

func timeBuild(ctx context.Context, idx port.VectorIndex, items []domain.Item) (time.Duration, error) {
	start := time.Now()
	err := idx.Build(ctx, items)
	return time.Since(start), err
}

func randomUnit(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return vecmath.Normalize(v)
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid size %q", part)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return sizes, nil
}
