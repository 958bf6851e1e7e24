package index

import (
	"container/heap"
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync/atomic"
	"time"

	"ragrec/internal/adapter/vecmath"
	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// HNSW is an approximate index built as a Hierarchical Navigable Small
// World graph. Populations no larger than EfSearch are scanned exactly, so
// results only diverge from Exact on large populations.
type HNSW struct {
	b    builder
	opts Options
	snap atomic.Pointer[graph]
}

func NewHNSW(embedder port.ItemEmbedder, opts Options) *HNSW {
	if opts.M < 2 {
		opts.M = 16
	}
	if opts.EfConstruction <= 0 {
		opts.EfConstruction = 200
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = 50
	}
	return &HNSW{
		b:    builder{embedder: embedder, backend: KindHNSW},
		opts: opts,
	}
}

func (h *HNSW) Build(ctx context.Context, items []domain.Item) error {
	h.b.mu.Lock()
	defer h.b.mu.Unlock()

	start := time.Now()
	p, err := h.b.prepare(ctx, items)
	if err != nil {
		return err
	}

	g := newGraph(p, h.opts)
	for i := range p.items {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		g.insert(uint32(i))
	}
	h.snap.Store(g)
	h.b.record(start, len(p.items))
	return nil
}

func (h *HNSW) Search(query []float32, k int, exclude map[string]struct{}) ([]domain.ScoredItem, error) {
	g := h.snap.Load()
	if g == nil || len(g.pop.items) == 0 || k <= 0 {
		return nil, nil
	}
	q, err := checkQuery(query, g.pop.dim)
	if err != nil {
		return nil, err
	}

	// Over-fetch by the number of excluded ids that are actually indexed.
	fetch := k
	for id := range exclude {
		if _, ok := g.byID[id]; ok {
			fetch++
		}
	}
	ef := max(g.cfg.EfSearch, fetch)
	if len(g.pop.items) <= ef {
		return scan(g.pop, q, k, exclude), nil
	}

	hits := make([]hit, 0, fetch)
	for _, id := range g.search(q, ef) {
		if _, skip := exclude[g.pop.items[id].ID]; skip {
			continue
		}
		hits = append(hits, hit{pos: int(id), score: vecmath.Dot(q, g.pop.vecs[id])})
	}
	return rank(g.pop, hits, k), nil
}

func (h *HNSW) Len() int {
	if g := h.snap.Load(); g != nil {
		return len(g.pop.items)
	}
	return 0
}

type hnswNode struct {
	level   int
	friends [][]uint32 // friends[layer] = neighbour positions
}

// graph is an immutable HNSW snapshot once built.
type graph struct {
	cfg      Options
	pop      *population
	byID     map[string]uint32
	nodes    []hnswNode
	entry    int32 // -1 when empty
	maxLevel int
	levelMul float64
	rng      *rand.Rand
}

func newGraph(p *population, cfg Options) *graph {
	byID := make(map[string]uint32, len(p.items))
	for i, it := range p.items {
		byID[it.ID] = uint32(i)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &graph{
		cfg:      cfg,
		pop:      p,
		byID:     byID,
		nodes:    make([]hnswNode, len(p.items)),
		entry:    -1,
		levelMul: 1.0 / math.Log(float64(cfg.M)),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *graph) maxConns(layer int) int {
	if layer == 0 {
		return g.cfg.M * 2
	}
	return g.cfg.M
}

// dist is the cosine distance between a unit query and node id.
func (g *graph) dist(q []float32, id uint32) float32 {
	return float32(1 - vecmath.Dot(q, g.pop.vecs[id]))
}

func (g *graph) randomLevel() int {
	r := max(g.rng.Float64(), math.SmallestNonzeroFloat64)
	return min(int(-math.Log(r)*g.levelMul), 31)
}

// greedy walks down from the entry point to layer stop+1 and returns the
// closest node found.
func (g *graph) greedy(q []float32, stop int) uint32 {
	cur := uint32(g.entry)
	curDist := g.dist(q, cur)
	for lev := g.maxLevel; lev > stop; lev-- {
		for changed := true; changed; {
			changed = false
			nd := g.nodes[cur]
			if lev >= len(nd.friends) {
				break
			}
			for _, f := range nd.friends[lev] {
				if d := g.dist(q, f); d < curDist {
					cur, curDist, changed = f, d, true
				}
			}
		}
	}
	return cur
}

func (g *graph) insert(id uint32) {
	vec := g.pop.vecs[id]
	level := g.randomLevel()
	g.nodes[id] = hnswNode{level: level, friends: make([][]uint32, level+1)}

	if g.entry < 0 {
		g.entry = int32(id)
		g.maxLevel = level
		return
	}

	ep := []uint32{g.greedy(vec, level)}
	for lev := min(level, g.maxLevel); lev >= 0; lev-- {
		candidates := g.searchLayer(vec, ep, g.cfg.EfConstruction, lev)
		maxC := g.maxConns(lev)
		neighbours := g.selectClosest(vec, candidates, maxC)
		g.nodes[id].friends[lev] = neighbours

		for _, n := range neighbours {
			nn := &g.nodes[n]
			if lev >= len(nn.friends) {
				continue
			}
			nn.friends[lev] = append(nn.friends[lev], id)
			if len(nn.friends[lev]) > maxC {
				nn.friends[lev] = g.selectClosest(g.pop.vecs[n], nn.friends[lev], maxC)
			}
		}
		ep = candidates
	}

	if level > g.maxLevel {
		g.entry = int32(id)
		g.maxLevel = level
	}
}

func (g *graph) search(q []float32, ef int) []uint32 {
	if g.entry < 0 {
		return nil
	}
	return g.searchLayer(q, []uint32{g.greedy(q, 0)}, ef, 0)
}

// searchLayer runs a beam search of width ef on one layer.
func (g *graph) searchLayer(q []float32, entryPoints []uint32, ef, layer int) []uint32 {
	visited := make(map[uint32]struct{}, ef*2)
	var candidates minDistHeap
	var results maxDistHeap

	for _, ep := range entryPoints {
		if _, seen := visited[ep]; seen {
			continue
		}
		visited[ep] = struct{}{}
		d := g.dist(q, ep)
		heap.Push(&candidates, distItem{id: ep, dist: d})
		heap.Push(&results, distItem{id: ep, dist: d})
		if results.Len() > ef {
			heap.Pop(&results)
		}
	}

	for candidates.Len() > 0 {
		closest := heap.Pop(&candidates).(distItem)
		if results.Len() >= ef && closest.dist > results[0].dist {
			break
		}
		nd := g.nodes[closest.id]
		if layer >= len(nd.friends) {
			continue
		}
		for _, f := range nd.friends[layer] {
			if _, seen := visited[f]; seen {
				continue
			}
			visited[f] = struct{}{}
			d := g.dist(q, f)
			if results.Len() < ef || d < results[0].dist {
				heap.Push(&candidates, distItem{id: f, dist: d})
				heap.Push(&results, distItem{id: f, dist: d})
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]uint32, results.Len())
	for i := range out {
		out[i] = results[i].id
	}
	return out
}

func (g *graph) selectClosest(q []float32, candidates []uint32, n int) []uint32 {
	if len(candidates) <= n {
		out := make([]uint32, len(candidates))
		copy(out, candidates)
		return out
	}
	items := make([]distItem, len(candidates))
	for i, c := range candidates {
		items[i] = distItem{id: c, dist: g.dist(q, c)}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].dist < items[j].dist })

	out := make([]uint32, n)
	for i := range out {
		out[i] = items[i].id
	}
	return out
}

type distItem struct {
	id   uint32
	dist float32
}

type minDistHeap []distItem

func (h minDistHeap) Len() int           { return len(h) }
func (h minDistHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minDistHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minDistHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *minDistHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type maxDistHeap []distItem

func (h maxDistHeap) Len() int           { return len(h) }
func (h maxDistHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxDistHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxDistHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *maxDistHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
