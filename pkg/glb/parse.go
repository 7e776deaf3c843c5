package glb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Asset is a parsed GLB: the JSON document plus the embedded binary
// chunk. Bin is immutable after parsing; accessor reads borrow from it.
type Asset struct {
	Doc *Document
	Bin []byte

	// Warnings collects non-fatal conditions detected at parse time,
	// such as a mesh shared by nodes with different rotations (the
	// quantization transform fixup is only exact for one of them).
	Warnings []string
}

// Stats summarizes the geometry of an asset.
type Stats struct {
	Meshes     int
	Primitives int
	Vertices   int
	Triangles  int
}

// Parse decodes a GLB container. The returned Asset borrows the BIN
// chunk from data; the caller must not mutate data afterwards.
func Parse(data []byte) (*Asset, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d byte file", ErrTruncatedChunk, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, binary.LittleEndian.Uint32(data[0:4]))
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != Version {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedVersion, v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:12]))
	if total > len(data) {
		return nil, fmt.Errorf("%w: header length %d exceeds file size %d", ErrTruncatedChunk, total, len(data))
	}

	var jsonChunk, binChunk []byte
	var haveJSON, haveBIN bool

	offset := headerSize
	for offset < total {
		if total-offset < chunkHeaderSize {
			return nil, fmt.Errorf("%w: chunk header at offset %d", ErrTruncatedChunk, offset)
		}
		length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		ctype := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += chunkHeaderSize
		if length < 0 || total-offset < length {
			return nil, fmt.Errorf("%w: chunk 0x%08X length %d at offset %d", ErrTruncatedChunk, ctype, length, offset)
		}
		payload := data[offset : offset+length]
		offset = align(offset+length, 4)

		switch ctype {
		case ChunkJSON:
			if haveJSON {
				return nil, fmt.Errorf("%w: JSON", ErrDuplicateChunk)
			}
			jsonChunk, haveJSON = payload, true
		case ChunkBIN:
			if haveBIN {
				return nil, fmt.Errorf("%w: BIN", ErrDuplicateChunk)
			}
			binChunk, haveBIN = payload, true
		default:
			// Unknown chunk types are skipped.
		}
	}

	if !haveJSON {
		return nil, ErrMissingJSONChunk
	}

	var doc Document
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return nil, fmt.Errorf("decoding JSON chunk: %w", err)
	}

	asset := &Asset{Doc: &doc, Bin: binChunk}
	if err := asset.validate(); err != nil {
		return nil, err
	}
	asset.flagSharedMeshRotations()
	return asset, nil
}

// validate checks buffer, view and accessor ranges against the BIN chunk.
func (a *Asset) validate() error {
	doc := a.Doc
	for i, buf := range doc.Buffers {
		if i == 0 {
			if buf.URI != "" {
				return fmt.Errorf("buffer 0: %w", ErrExternalBuffer)
			}
			if buf.ByteLength > len(a.Bin) {
				return fmt.Errorf("buffer 0: %w: byteLength %d, BIN chunk %d", ErrViewOutOfRange, buf.ByteLength, len(a.Bin))
			}
		}
	}
	for i, bv := range doc.BufferViews {
		if bv.Buffer != 0 {
			continue
		}
		if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(a.Bin) {
			return fmt.Errorf("bufferView %d: %w", i, ErrViewOutOfRange)
		}
		if bv.ByteStride > 252 {
			return fmt.Errorf("bufferView %d: %w: %d", i, ErrStrideTooLarge, bv.ByteStride)
		}
	}
	for i := range doc.Accessors {
		acc := &doc.Accessors[i]
		if ComponentSize(acc.ComponentType) == 0 {
			return fmt.Errorf("accessor %d: %w: %d", i, ErrUnsupportedComponent, acc.ComponentType)
		}
		if ComponentCount(acc.Type) == 0 {
			return fmt.Errorf("accessor %d: %w: type %q", i, ErrUnsupportedComponent, acc.Type)
		}
		if acc.BufferView == nil {
			continue
		}
		if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
			return fmt.Errorf("accessor %d: %w: bufferView %d", i, ErrAccessorOutOfRange, *acc.BufferView)
		}
		bv := &doc.BufferViews[*acc.BufferView]
		if _, ok := bv.Extensions[ExtensionMeshopt]; ok {
			// The view holds compressed bytes; the logical extent lives
			// in the extension object, not in byteLength.
			continue
		}
		stride := bv.ByteStride
		elem := ElementSize(acc.ComponentType, acc.Type)
		if stride == 0 {
			stride = elem
		}
		if acc.Count > 0 {
			need := acc.ByteOffset + (acc.Count-1)*stride + elem
			if need > bv.ByteLength {
				return fmt.Errorf("accessor %d: %w: needs %d bytes, view has %d", i, ErrAccessorOutOfRange, need, bv.ByteLength)
			}
		}
	}
	return nil
}

// flagSharedMeshRotations records a warning for every mesh referenced by
// two or more nodes whose rotations differ. Folding a quantization affine
// into node transforms is only exact for one such node.
func (a *Asset) flagSharedMeshRotations() {
	byMesh := make(map[int][]int)
	for i := range a.Doc.Nodes {
		if m := a.Doc.Nodes[i].Mesh; m != nil {
			byMesh[*m] = append(byMesh[*m], i)
		}
	}
	for mesh, nodes := range byMesh {
		if len(nodes) < 2 {
			continue
		}
		first := nodeRotation(&a.Doc.Nodes[nodes[0]])
		for _, n := range nodes[1:] {
			if nodeRotation(&a.Doc.Nodes[n]) != first {
				a.Warnings = append(a.Warnings,
					fmt.Sprintf("mesh %d is shared by nodes with different rotations; transform fixup is exact for node %d only", mesh, nodes[0]))
				break
			}
		}
	}
}

func nodeRotation(n *Node) [4]float32 {
	if n.Rotation != nil {
		return *n.Rotation
	}
	return [4]float32{0, 0, 0, 1}
}

// Stats counts meshes, primitives, vertices and triangles.
func (a *Asset) Stats() Stats {
	s := Stats{Meshes: len(a.Doc.Meshes)}
	for mi := range a.Doc.Meshes {
		mesh := &a.Doc.Meshes[mi]
		s.Primitives += len(mesh.Primitives)
		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			if pos, ok := prim.Attributes["POSITION"]; ok && pos >= 0 && pos < len(a.Doc.Accessors) {
				s.Vertices += a.Doc.Accessors[pos].Count
			}
			if prim.ModeOrDefault() != ModeTriangles {
				continue
			}
			if prim.Indices != nil && *prim.Indices >= 0 && *prim.Indices < len(a.Doc.Accessors) {
				s.Triangles += a.Doc.Accessors[*prim.Indices].Count / 3
			} else if pos, ok := prim.Attributes["POSITION"]; ok && pos < len(a.Doc.Accessors) {
				s.Triangles += a.Doc.Accessors[pos].Count / 3
			}
		}
	}
	return s
}
