// Package glb provides a parser and writer for the glTF-Binary (GLB)
// container format, including the accessor/bufferView addressing model
// used to read typed vertex data out of the binary chunk.
package glb

import "errors"

// GLB container constants.
const (
	// Magic is the GLB header magic number ("glTF" little-endian).
	Magic uint32 = 0x46546C67

	// Version is the only supported container version.
	Version uint32 = 2

	// ChunkJSON identifies the JSON chunk ("JSON").
	ChunkJSON uint32 = 0x4E4F534A

	// ChunkBIN identifies the binary chunk ("BIN\0").
	ChunkBIN uint32 = 0x004E4942

	headerSize      = 12
	chunkHeaderSize = 8
)

// Extension names emitted by the writer.
const (
	ExtensionMeshopt      = "EXT_meshopt_compression"
	ExtensionQuantization = "KHR_mesh_quantization"
)

// Compression modes for EXT_meshopt_compression buffer views.
const (
	MeshoptModeTriangles  = "TRIANGLES"
	MeshoptModeAttributes = "ATTRIBUTES"
)

// GLB container errors.
var (
	ErrBadMagic             = errors.New("bad GLB magic")
	ErrUnsupportedVersion   = errors.New("unsupported GLB version: expected 2")
	ErrTruncatedChunk       = errors.New("truncated GLB chunk")
	ErrMissingJSONChunk     = errors.New("GLB has no JSON chunk")
	ErrDuplicateChunk       = errors.New("GLB has more than one chunk of the same type")
	ErrExternalBuffer       = errors.New("buffer 0 must be the embedded BIN chunk")
	ErrAccessorOutOfRange   = errors.New("accessor out of range")
	ErrUnsupportedComponent = errors.New("unsupported accessor component type")
	ErrMissingPositionAttr  = errors.New("primitive has no POSITION attribute")
	ErrSparseAccessor       = errors.New("sparse accessors are not supported")
	ErrCompressedInput      = errors.New("buffer view is meshopt-compressed and needs an external decoder")
	ErrViewOutOfRange       = errors.New("buffer view exceeds binary chunk")
	ErrStrideTooLarge       = errors.New("buffer view stride exceeds 252 bytes")
	ErrWriterPhase          = errors.New("writer phase transition not allowed")
)

// Accessor component types, as defined by the glTF 2.0 specification.
const (
	ComponentInt8   = 5120
	ComponentUint8  = 5121
	ComponentInt16  = 5122
	ComponentUint16 = 5123
	ComponentUint32 = 5125
	ComponentFloat  = 5126
)

// Accessor element types.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
	TypeVec4   = "VEC4"
	TypeMat2   = "MAT2"
	TypeMat3   = "MAT3"
	TypeMat4   = "MAT4"
)

// ComponentSize returns the size in bytes of one component, or 0 for an
// unknown component type.
func ComponentSize(componentType int) int {
	switch componentType {
	case ComponentInt8, ComponentUint8:
		return 1
	case ComponentInt16, ComponentUint16:
		return 2
	case ComponentUint32, ComponentFloat:
		return 4
	}
	return 0
}

// ComponentCount returns the number of components in one element of the
// given accessor type, or 0 for an unknown type.
func ComponentCount(accessorType string) int {
	switch accessorType {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	}
	return 0
}

// ElementSize returns the tightly packed size in bytes of one accessor
// element, or 0 if either part is unknown.
func ElementSize(componentType int, accessorType string) int {
	return ComponentSize(componentType) * ComponentCount(accessorType)
}

// align rounds n up to the next multiple of a. a must be a power of two.
func align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}
