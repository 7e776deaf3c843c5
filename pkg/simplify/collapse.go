package simplify

import (
	"container/heap"
	"errors"
	"math"

	"github.com/chewxy/math32"
)

// ErrDegenerateInput is returned when the index stream is not a triangle
// list.
var ErrDegenerateInput = errors.New("index count is not a multiple of 3")

// Simplify reduces the triangle list by greedy quadric edge collapse.
// positions holds xyz triples; uvs, when non-nil, holds uv pairs whose
// distortion enters the collapse cost with uvWeight per channel. Locked
// vertices are never collapsed away, and with lockBorder set neither are
// vertices on open boundary edges. Collapses whose error exceeds
// errorThreshold (measured relative to the mesh extent) are abandoned.
func (k *Kernel) Simplify(indices []uint32, positions []float32, uvs []float32, uvWeight float32,
	vertexLock []bool, targetIndexCount int, errorThreshold float32, lockBorder bool) ([]uint32, float32, error) {

	if len(indices)%3 != 0 {
		return nil, 0, ErrDegenerateInput
	}
	if targetIndexCount < 3 {
		targetIndexCount = 3
	}
	targetIndexCount -= targetIndexCount % 3
	if len(indices) <= targetIndexCount {
		return append([]uint32(nil), indices...), 0, nil
	}

	vertexCount := len(positions) / 3
	s := newCollapseState(indices, positions, uvs, uvWeight, vertexLock, lockBorder, vertexCount)

	threshold := float64(errorThreshold) * float64(errorThreshold)
	var worst float64

	for s.liveTris*3 > targetIndexCount && s.queue.Len() > 0 {
		item := heap.Pop(&s.queue).(*candidate)
		a, b := s.find(item.from), s.find(item.to)
		if a == b || s.locked[a] {
			continue
		}
		if item.epoch != s.epoch[a]+s.epoch[b] {
			// Stale cost: recompute against the merged state and requeue.
			item.cost = s.collapseCost(a, b)
			item.from, item.to = a, b
			item.epoch = s.epoch[a] + s.epoch[b]
			heap.Push(&s.queue, item)
			continue
		}
		if item.cost > threshold {
			break
		}
		if item.cost > worst {
			worst = item.cost
		}
		s.collapse(a, b)
	}

	out := s.rebuildIndices()
	return out, math32.Sqrt(float32(worst)), nil
}

// quadric is a symmetric 4x4 plane-distance form.
type quadric struct {
	xx, xy, xz, xw float64
	yy, yz, yw     float64
	zz, zw         float64
	ww             float64
}

func (q *quadric) addPlane(a, b, c, d, w float64) {
	q.xx += w * a * a
	q.xy += w * a * b
	q.xz += w * a * c
	q.xw += w * a * d
	q.yy += w * b * b
	q.yz += w * b * c
	q.yw += w * b * d
	q.zz += w * c * c
	q.zw += w * c * d
	q.ww += w * d * d
}

func (q *quadric) add(o *quadric) {
	q.xx += o.xx
	q.xy += o.xy
	q.xz += o.xz
	q.xw += o.xw
	q.yy += o.yy
	q.yz += o.yz
	q.yw += o.yw
	q.zz += o.zz
	q.zw += o.zw
	q.ww += o.ww
}

func (q *quadric) eval(x, y, z float64) float64 {
	return q.xx*x*x + 2*q.xy*x*y + 2*q.xz*x*z + 2*q.xw*x +
		q.yy*y*y + 2*q.yz*y*z + 2*q.yw*y +
		q.zz*z*z + 2*q.zw*z + q.ww
}

type candidate struct {
	cost     float64
	from, to uint32
	epoch    uint32
	seq      int
	index    int
}

type candidateQueue []*candidate

func (q candidateQueue) Len() int { return len(q) }
func (q candidateQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}
func (q candidateQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *candidateQueue) Push(x any) {
	c := x.(*candidate)
	c.index = len(*q)
	*q = append(*q, c)
}
func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}

type collapseState struct {
	pos      []float64 // normalized xyz
	uvs      []float32
	uvWeight float64

	tris     [][3]uint32
	triAlive []bool
	liveTris int

	adj    [][]int32 // vertex -> incident tri ids
	parent []uint32
	epoch  []uint32
	locked []bool
	quad   []quadric

	queue candidateQueue
	seq   int
}

func newCollapseState(indices []uint32, positions []float32, uvs []float32, uvWeight float32,
	vertexLock []bool, lockBorder bool, vertexCount int) *collapseState {

	s := &collapseState{
		uvs:      uvs,
		uvWeight: float64(uvWeight),
		parent:   make([]uint32, vertexCount),
		epoch:    make([]uint32, vertexCount),
		locked:   make([]bool, vertexCount),
		quad:     make([]quadric, vertexCount),
		adj:      make([][]int32, vertexCount),
	}
	for v := range s.parent {
		s.parent[v] = uint32(v)
		if vertexLock != nil && vertexLock[v] {
			s.locked[v] = true
		}
	}

	// Normalize into a unit-extent frame so the error threshold is
	// relative to model size.
	var mins, maxs [3]float64
	for k := 0; k < 3; k++ {
		mins[k], maxs[k] = 1e300, -1e300
	}
	for v := 0; v < vertexCount; v++ {
		for k := 0; k < 3; k++ {
			p := float64(positions[v*3+k])
			if p < mins[k] {
				mins[k] = p
			}
			if p > maxs[k] {
				maxs[k] = p
			}
		}
	}
	extent := 0.0
	for k := 0; k < 3; k++ {
		if e := maxs[k] - mins[k]; e > extent {
			extent = e
		}
	}
	if extent == 0 {
		extent = 1
	}
	s.pos = make([]float64, vertexCount*3)
	for v := 0; v < vertexCount; v++ {
		for k := 0; k < 3; k++ {
			s.pos[v*3+k] = (float64(positions[v*3+k]) - mins[k]) / extent
		}
	}

	// Triangles, adjacency and plane quadrics. Edges are collected in
	// triangle order so candidate seeding is deterministic.
	edgeUse := make(map[[2]uint32]int)
	var edgeOrder [][2]uint32
	for t := 0; t*3 < len(indices); t++ {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]
		if a == b || b == c || a == c {
			continue
		}
		id := int32(len(s.tris))
		s.tris = append(s.tris, [3]uint32{a, b, c})
		s.triAlive = append(s.triAlive, true)
		s.liveTris++
		s.adj[a] = append(s.adj[a], id)
		s.adj[b] = append(s.adj[b], id)
		s.adj[c] = append(s.adj[c], id)

		nx, ny, nz, area := trianglePlaneNormal(s.pos, a, b, c)
		if area > 0 {
			d := -(nx*s.pos[a*3] + ny*s.pos[a*3+1] + nz*s.pos[a*3+2])
			s.quad[a].addPlane(nx, ny, nz, d, area)
			s.quad[b].addPlane(nx, ny, nz, d, area)
			s.quad[c].addPlane(nx, ny, nz, d, area)
		}

		for k := 0; k < 3; k++ {
			e := orderedEdge(s.tris[id][k], s.tris[id][(k+1)%3])
			if edgeUse[e] == 0 {
				edgeOrder = append(edgeOrder, e)
			}
			edgeUse[e]++
		}
	}

	// Open boundary edges lock their endpoints when requested.
	if lockBorder {
		for e, n := range edgeUse {
			if n == 1 {
				s.locked[e[0]] = true
				s.locked[e[1]] = true
			}
		}
	}

	for _, e := range edgeOrder {
		s.pushCandidate(e[0], e[1])
		s.pushCandidate(e[1], e[0])
	}
	heap.Init(&s.queue)
	return s
}

func trianglePlaneNormal(pos []float64, a, b, c uint32) (nx, ny, nz, area float64) {
	ax, ay, az := pos[a*3], pos[a*3+1], pos[a*3+2]
	bx, by, bz := pos[b*3], pos[b*3+1], pos[b*3+2]
	cx, cy, cz := pos[c*3], pos[c*3+1], pos[c*3+2]
	ux, uy, uz := bx-ax, by-ay, bz-az
	vx, vy, vz := cx-ax, cy-ay, cz-az
	nx = uy*vz - uz*vy
	ny = uz*vx - ux*vz
	nz = ux*vy - uy*vx
	l := nx*nx + ny*ny + nz*nz
	if l == 0 {
		return 0, 0, 0, 0
	}
	l = math.Sqrt(l)
	return nx / l, ny / l, nz / l, l / 2
}

func orderedEdge(a, b uint32) [2]uint32 {
	if a > b {
		a, b = b, a
	}
	return [2]uint32{a, b}
}

func (s *collapseState) find(v uint32) uint32 {
	for s.parent[v] != v {
		s.parent[v] = s.parent[s.parent[v]]
		v = s.parent[v]
	}
	return v
}

func (s *collapseState) pushCandidate(from, to uint32) {
	if s.locked[from] {
		return
	}
	c := &candidate{
		cost:  s.collapseCost(from, to),
		from:  from,
		to:    to,
		epoch: s.epoch[from] + s.epoch[to],
		seq:   s.seq,
	}
	s.seq++
	s.queue = append(s.queue, c)
	c.index = len(s.queue) - 1
}

// collapseCost is the quadric error of moving from onto to, plus the UV
// stretch term.
func (s *collapseState) collapseCost(from, to uint32) float64 {
	q := s.quad[from]
	q.add(&s.quad[to])
	cost := q.eval(s.pos[to*3], s.pos[to*3+1], s.pos[to*3+2])
	if s.uvs != nil && s.uvWeight > 0 {
		du := float64(s.uvs[from*2] - s.uvs[to*2])
		dv := float64(s.uvs[from*2+1] - s.uvs[to*2+1])
		cost += s.uvWeight * (du*du + dv*dv)
	}
	if cost < 0 {
		cost = 0
	}
	return cost
}

// collapse merges vertex a into b.
func (s *collapseState) collapse(a, b uint32) {
	s.parent[a] = b
	s.quad[b].add(&s.quad[a])
	if s.locked[a] {
		s.locked[b] = true
	}
	s.epoch[a]++
	s.epoch[b]++

	for _, t := range s.adj[a] {
		if !s.triAlive[t] {
			continue
		}
		v0 := s.find(s.tris[t][0])
		v1 := s.find(s.tris[t][1])
		v2 := s.find(s.tris[t][2])
		if v0 == v1 || v1 == v2 || v0 == v2 {
			s.triAlive[t] = false
			s.liveTris--
			continue
		}
		s.adj[b] = append(s.adj[b], t)
	}
	s.adj[a] = nil

	// Fresh candidates around the merged vertex.
	pushed := make(map[uint32]bool)
	for _, t := range s.adj[b] {
		if !s.triAlive[t] {
			continue
		}
		for k := 0; k < 3; k++ {
			n := s.find(s.tris[t][k])
			if n == b || pushed[n] {
				continue
			}
			pushed[n] = true
			if !s.locked[b] {
				s.pushHeap(b, n)
			}
			if !s.locked[n] {
				s.pushHeap(n, b)
			}
		}
	}
}

func (s *collapseState) pushHeap(from, to uint32) {
	c := &candidate{
		cost:  s.collapseCost(from, to),
		from:  from,
		to:    to,
		epoch: s.epoch[from] + s.epoch[to],
		seq:   s.seq,
	}
	s.seq++
	heap.Push(&s.queue, c)
}

func (s *collapseState) rebuildIndices() []uint32 {
	out := make([]uint32, 0, s.liveTris*3)
	for t, alive := range s.triAlive {
		if !alive {
			continue
		}
		v0 := s.find(s.tris[t][0])
		v1 := s.find(s.tris[t][1])
		v2 := s.find(s.tris[t][2])
		if v0 == v1 || v1 == v2 || v0 == v2 {
			continue
		}
		out = append(out, v0, v1, v2)
	}
	return out
}
