// Package simplify provides a native mesh processing kernel: vertex
// deduplication, cache-friendly triangle reordering and quadric
// edge-collapse simplification. It satisfies the optimizer's Simplifier
// contract without cgo or an external meshopt build.
package simplify

// Unused marks a vertex slot that no index references; deduplication
// drops such vertices from the remap.
const Unused = ^uint32(0)

// Kernel implements the mesh processing contract.
type Kernel struct{}

// New returns the native kernel.
func New() *Kernel {
	return &Kernel{}
}

// Compact builds a deduplication remap over the vertex stream. Vertices
// with identical bytes collapse to a single slot; vertices never
// referenced by indices map to Unused. New ids are assigned in order of
// first reference, so the result is deterministic for a fixed input.
func (k *Kernel) Compact(indices []uint32, vertexData []byte, vertexStride int) ([]uint32, int) {
	vertexCount := 0
	if vertexStride > 0 {
		vertexCount = len(vertexData) / vertexStride
	}
	remap := make([]uint32, vertexCount)
	for i := range remap {
		remap[i] = Unused
	}

	seen := make(map[string]uint32, vertexCount)
	next := uint32(0)
	for _, idx := range indices {
		if int(idx) >= vertexCount || remap[idx] != Unused {
			continue
		}
		key := string(vertexData[int(idx)*vertexStride : (int(idx)+1)*vertexStride])
		if id, ok := seen[key]; ok {
			remap[idx] = id
			continue
		}
		seen[key] = next
		remap[idx] = next
		next++
	}
	return remap, int(next)
}

// Reorder runs triangle reordering for post-transform cache locality and
// returns the reordered indices already renumbered into first-use order,
// along with the vertex remap that renumbering implies.
func (k *Kernel) Reorder(indices []uint32, vertexCount int) ([]uint32, []uint32, int) {
	ordered := tipsify(indices, vertexCount, 16)

	remap := make([]uint32, vertexCount)
	for i := range remap {
		remap[i] = Unused
	}
	next := uint32(0)
	out := make([]uint32, len(ordered))
	for i, idx := range ordered {
		if remap[idx] == Unused {
			remap[idx] = next
			next++
		}
		out[i] = remap[idx]
	}
	return out, remap, int(next)
}

// tipsify reorders triangles following Sander et al.'s linear-time
// vertex cache optimization with a FIFO cache model and dead-end stack.
func tipsify(indices []uint32, vertexCount, cacheSize int) []uint32 {
	triCount := len(indices) / 3
	if triCount == 0 || vertexCount == 0 {
		return append([]uint32(nil), indices...)
	}

	// Vertex -> incident triangle adjacency.
	valence := make([]int, vertexCount)
	for _, idx := range indices {
		valence[idx]++
	}
	offsets := make([]int, vertexCount+1)
	for v := 0; v < vertexCount; v++ {
		offsets[v+1] = offsets[v] + valence[v]
	}
	adjacency := make([]int32, len(indices))
	cursor := append([]int(nil), offsets[:vertexCount]...)
	for t := 0; t < triCount; t++ {
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			adjacency[cursor[v]] = int32(t)
			cursor[v]++
		}
	}

	liveTriangles := append([]int(nil), valence...)
	emitted := make([]bool, triCount)
	cacheTime := make([]int, vertexCount)
	timestamp := cacheSize + 1
	deadEnd := make([]uint32, 0, len(indices))

	out := make([]uint32, 0, len(indices))
	fanning := int32(0) // current fanning vertex + 1, 0 = none
	remaining := triCount
	inputCursor := 0

	for remaining > 0 {
		v := int32(-1)
		if fanning > 0 {
			v = fanning - 1
		}
		if v < 0 || liveTriangles[v] == 0 {
			v = nextVertex(&deadEnd, liveTriangles, &inputCursor, indices)
		}
		if v < 0 {
			break
		}

		// Emit all live triangles around v.
		bestCandidate := int32(-1)
		bestPriority := -1
		for a := offsets[v]; a < offsets[v+1]; a++ {
			t := adjacency[a]
			if emitted[t] {
				continue
			}
			for k := 0; k < 3; k++ {
				idx := indices[int(t)*3+k]
				out = append(out, idx)
				deadEnd = append(deadEnd, idx)
				liveTriangles[idx]--
				if timestamp-cacheTime[idx] > cacheSize {
					cacheTime[idx] = timestamp
					timestamp++
				}
			}
			emitted[t] = true
			remaining--
		}

		// Pick the next fanning vertex among v's cached neighbors.
		for a := offsets[v]; a < offsets[v+1]; a++ {
			t := adjacency[a]
			for k := 0; k < 3; k++ {
				idx := int32(indices[int(t)*3+k])
				if liveTriangles[idx] == 0 {
					continue
				}
				priority := 0
				if timestamp-cacheTime[idx]+2*liveTriangles[idx] <= cacheSize {
					priority = timestamp - cacheTime[idx]
				}
				if priority > bestPriority {
					bestPriority = priority
					bestCandidate = idx
				}
			}
		}
		fanning = bestCandidate + 1
	}
	return out
}

// nextVertex pops the dead-end stack, falling back to an input-order scan.
func nextVertex(deadEnd *[]uint32, liveTriangles []int, inputCursor *int, indices []uint32) int32 {
	stack := *deadEnd
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if liveTriangles[v] > 0 {
			*deadEnd = stack
			return int32(v)
		}
	}
	*deadEnd = stack
	for *inputCursor < len(indices) {
		v := indices[*inputCursor]
		*inputCursor++
		if liveTriangles[v] > 0 {
			return int32(v)
		}
	}
	return -1
}
