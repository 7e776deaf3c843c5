// glTF 2.0 JSON document model. Only the fields the optimizer reads or
// rewrites are typed; everything else rides along as raw JSON so unknown
// extensions survive a rewrite.
package glb

import "encoding/json"

// Document is the root of a glTF JSON document.
type Document struct {
	Asset              AssetInfo                  `json:"asset"`
	Scene              *int                       `json:"scene,omitempty"`
	Scenes             []Scene                    `json:"scenes,omitempty"`
	Nodes              []Node                     `json:"nodes,omitempty"`
	Meshes             []Mesh                     `json:"meshes,omitempty"`
	Accessors          []Accessor                 `json:"accessors,omitempty"`
	BufferViews        []BufferView               `json:"bufferViews,omitempty"`
	Buffers            []Buffer                   `json:"buffers,omitempty"`
	Materials          []Material                 `json:"materials,omitempty"`
	Textures           []Texture                  `json:"textures,omitempty"`
	Images             []Image                    `json:"images,omitempty"`
	Samplers           []json.RawMessage          `json:"samplers,omitempty"`
	Skins              []Skin                     `json:"skins,omitempty"`
	Animations         []Animation                `json:"animations,omitempty"`
	Cameras            []json.RawMessage          `json:"cameras,omitempty"`
	ExtensionsUsed     []string                   `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string                   `json:"extensionsRequired,omitempty"`
	Extensions         map[string]json.RawMessage `json:"extensions,omitempty"`
	Extras             json.RawMessage            `json:"extras,omitempty"`
}

// AssetInfo holds glTF asset metadata.
type AssetInfo struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

// Scene is a set of root nodes.
type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Node is one entry in the transform hierarchy. Exactly one of Matrix or
// the TRS triple is normally present; both absent means identity.
type Node struct {
	Name        string          `json:"name,omitempty"`
	Children    []int           `json:"children,omitempty"`
	Mesh        *int            `json:"mesh,omitempty"`
	Skin        *int            `json:"skin,omitempty"`
	Camera      *int            `json:"camera,omitempty"`
	Matrix      *[16]float32    `json:"matrix,omitempty"`
	Translation *[3]float32     `json:"translation,omitempty"`
	Rotation    *[4]float32     `json:"rotation,omitempty"`
	Scale       *[3]float32     `json:"scale,omitempty"`
	Weights     []float32       `json:"weights,omitempty"`
	Extras      json.RawMessage `json:"extras,omitempty"`
}

// Mesh is a set of primitives.
type Mesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []Primitive     `json:"primitives"`
	Weights    []float32       `json:"weights,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

// Primitive modes. The optimizer only processes triangle lists.
const (
	ModePoints        = 0
	ModeLines         = 1
	ModeTriangles     = 4
	ModeTriangleStrip = 5
	ModeTriangleFan   = 6
)

// Primitive is one draw call worth of geometry.
type Primitive struct {
	Attributes map[string]int  `json:"attributes"`
	Indices    *int            `json:"indices,omitempty"`
	Material   *int            `json:"material,omitempty"`
	Mode       *int            `json:"mode,omitempty"`
	Targets    json.RawMessage `json:"targets,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

// ModeOrDefault returns the primitive mode, defaulting to triangles.
func (p *Primitive) ModeOrDefault() int {
	if p.Mode == nil {
		return ModeTriangles
	}
	return *p.Mode
}

// Accessor describes how to interpret a span of a buffer view as typed
// elements.
type Accessor struct {
	Name          string          `json:"name,omitempty"`
	BufferView    *int            `json:"bufferView,omitempty"`
	ByteOffset    int             `json:"byteOffset,omitempty"`
	ComponentType int             `json:"componentType"`
	Normalized    bool            `json:"normalized,omitempty"`
	Count         int             `json:"count"`
	Type          string          `json:"type"`
	Min           []float64       `json:"min,omitempty"`
	Max           []float64       `json:"max,omitempty"`
	Sparse        json.RawMessage `json:"sparse,omitempty"`
}

// BufferView is a byte range inside a buffer.
type BufferView struct {
	Name       string                     `json:"name,omitempty"`
	Buffer     int                        `json:"buffer"`
	ByteOffset int                        `json:"byteOffset,omitempty"`
	ByteLength int                        `json:"byteLength"`
	ByteStride int                        `json:"byteStride,omitempty"`
	Target     int                        `json:"target,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// Buffer view targets.
const (
	TargetArrayBuffer        = 34962
	TargetElementArrayBuffer = 34963
)

// Buffer is a raw binary data container. Buffer 0 of a GLB is the BIN
// chunk and carries no URI.
type Buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// MeshoptExtension is the EXT_meshopt_compression buffer view extension
// object. The containing view describes the compressed bytes; this object
// describes the decompressed layout.
type MeshoptExtension struct {
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride"`
	Count      int    `json:"count"`
	Mode       string `json:"mode"`
}

// TextureRef is a material's reference to a texture with a UV set.
type TextureRef struct {
	Index    int             `json:"index"`
	TexCoord int             `json:"texCoord,omitempty"`
	Scale    *float64        `json:"scale,omitempty"`
	Strength *float64        `json:"strength,omitempty"`
	Extras   json.RawMessage `json:"extras,omitempty"`
}

// PBRMetallicRoughness is the core PBR material model.
type PBRMetallicRoughness struct {
	BaseColorFactor          *[4]float64 `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *TextureRef `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float64    `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float64    `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *TextureRef `json:"metallicRoughnessTexture,omitempty"`
}

// Material binds textures and shading factors to primitives.
type Material struct {
	Name                 string                     `json:"name,omitempty"`
	PBRMetallicRoughness *PBRMetallicRoughness      `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *TextureRef                `json:"normalTexture,omitempty"`
	OcclusionTexture     *TextureRef                `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *TextureRef                `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float64                `json:"emissiveFactor,omitempty"`
	AlphaMode            string                     `json:"alphaMode,omitempty"`
	AlphaCutoff          *float64                   `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                       `json:"doubleSided,omitempty"`
	Extensions           map[string]json.RawMessage `json:"extensions,omitempty"`
	Extras               json.RawMessage            `json:"extras,omitempty"`
}

// Texture pairs an image with a sampler.
type Texture struct {
	Name    string `json:"name,omitempty"`
	Source  *int   `json:"source,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
}

// Image is picture data addressed through a buffer view or a URI.
type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// Skin binds a mesh to a skeleton.
type Skin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

// Animation groups channels and samplers.
type Animation struct {
	Name     string             `json:"name,omitempty"`
	Channels []AnimationChannel `json:"channels"`
	Samplers []AnimationSampler `json:"samplers"`
}

// AnimationChannel routes a sampler's output to a node property.
type AnimationChannel struct {
	Sampler int             `json:"sampler"`
	Target  AnimationTarget `json:"target"`
}

// AnimationTarget names the animated node and path.
type AnimationTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

// AnimationSampler pairs keyframe input and output accessors.
type AnimationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}
