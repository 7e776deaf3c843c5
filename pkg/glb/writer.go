package glb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
)

// Writer phases. Emission always runs geometry → images → animations →
// finalize; transitions never go backwards.
const (
	phaseGeometry = iota
	phaseImages
	phaseAnimations
	phaseFinalized
)

// Writer assembles a GLB from scratch: a fresh document, sequentially
// allocated buffer views and accessors, and a single output buffer.
// It never patches an existing container in place.
type Writer struct {
	doc   Document
	bin   bytes.Buffer
	phase int

	required map[string]bool
	used     map[string]bool
}

// NewWriter returns a Writer with an empty version-2.0 document.
func NewWriter(generator string) *Writer {
	return &Writer{
		doc: Document{
			Asset: AssetInfo{Version: "2.0", Generator: generator},
		},
		required: make(map[string]bool),
		used:     make(map[string]bool),
	}
}

// Doc exposes the document under construction so the caller can attach
// meshes, materials, nodes and the other JSON-only arrays.
func (w *Writer) Doc() *Document {
	return &w.doc
}

// UseExtension declares an extension in extensionsUsed, and in
// extensionsRequired when required is true.
func (w *Writer) UseExtension(name string, isRequired bool) {
	w.used[name] = true
	if isRequired {
		w.required[name] = true
	}
}

// AddView appends data as a new buffer view, aligning the running buffer
// offset to alignTo (floored at 4) first, and returns the view index.
// byteStride and target are recorded verbatim when non-zero.
func (w *Writer) AddView(data []byte, byteStride, target, alignTo int) int {
	if alignTo < 4 {
		alignTo = 4
	}
	w.pad(alignTo)
	view := BufferView{
		Buffer:     0,
		ByteOffset: w.bin.Len(),
		ByteLength: len(data),
		ByteStride: byteStride,
		Target:     target,
	}
	w.bin.Write(data)
	w.doc.BufferViews = append(w.doc.BufferViews, view)
	return len(w.doc.BufferViews) - 1
}

// AddCompressedView appends a meshopt-compressed blob as a buffer view.
// The view itself describes the compressed bytes; the decompressed layout
// travels in the EXT_meshopt_compression extension object.
func (w *Writer) AddCompressedView(compressed []byte, target int, ext MeshoptExtension) (int, error) {
	w.pad(4)
	ext.Buffer = 0
	ext.ByteOffset = w.bin.Len()
	ext.ByteLength = len(compressed)
	raw, err := json.Marshal(&ext)
	if err != nil {
		return 0, fmt.Errorf("encoding meshopt extension: %w", err)
	}
	view := BufferView{
		Buffer:     0,
		ByteOffset: w.bin.Len(),
		ByteLength: len(compressed),
		Target:     target,
		Extensions: map[string]json.RawMessage{ExtensionMeshopt: raw},
	}
	w.bin.Write(compressed)
	w.doc.BufferViews = append(w.doc.BufferViews, view)
	w.UseExtension(ExtensionMeshopt, true)
	return len(w.doc.BufferViews) - 1, nil
}

// AddAccessor appends acc and returns its index.
func (w *Writer) AddAccessor(acc Accessor) int {
	w.doc.Accessors = append(w.doc.Accessors, acc)
	return len(w.doc.Accessors) - 1
}

// EnterImages moves emission into the image phase.
func (w *Writer) EnterImages() error {
	return w.advance(phaseImages)
}

// EnterAnimations moves emission into the animation/skin phase.
func (w *Writer) EnterAnimations() error {
	return w.advance(phaseAnimations)
}

func (w *Writer) advance(to int) error {
	if to < w.phase || w.phase == phaseFinalized {
		return fmt.Errorf("%w: %d -> %d", ErrWriterPhase, w.phase, to)
	}
	w.phase = to
	return nil
}

// BinLen returns the current length of the output buffer.
func (w *Writer) BinLen() int {
	return w.bin.Len()
}

// pad writes zero bytes until the buffer length is a multiple of a.
func (w *Writer) pad(a int) {
	for w.bin.Len()%a != 0 {
		w.bin.WriteByte(0)
	}
}

// Finalize freezes the document, frames the JSON and BIN chunks with the
// required 4-byte padding and returns the complete GLB bytes.
func (w *Writer) Finalize() ([]byte, error) {
	if err := w.advance(phaseFinalized); err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(w.used) {
		w.doc.ExtensionsUsed = append(w.doc.ExtensionsUsed, name)
	}
	for _, name := range sortedKeys(w.required) {
		w.doc.ExtensionsRequired = append(w.doc.ExtensionsRequired, name)
	}

	w.pad(4)
	if w.bin.Len() > 0 {
		w.doc.Buffers = []Buffer{{ByteLength: w.bin.Len()}}
	}

	jsonChunk, err := json.Marshal(&w.doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}

	binChunk := w.bin.Bytes()
	total := headerSize + chunkHeaderSize + len(jsonChunk)
	if len(binChunk) > 0 {
		total += chunkHeaderSize + len(binChunk)
	}

	out := make([]byte, 0, total)
	out = appendU32(out, Magic)
	out = appendU32(out, Version)
	out = appendU32(out, uint32(total))
	out = appendU32(out, uint32(len(jsonChunk)))
	out = appendU32(out, ChunkJSON)
	out = append(out, jsonChunk...)
	if len(binChunk) > 0 {
		out = appendU32(out, uint32(len(binChunk)))
		out = appendU32(out, ChunkBIN)
		out = append(out, binChunk...)
	}
	return out, nil
}

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
