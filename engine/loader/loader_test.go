package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleBuffer holds three VEC3 float positions followed by three uint16 indices, padded to 44 bytes.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	for _, ix := range []uint16{0, 1, 2, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, ix)
	}
	return buf.Bytes()
}

// testDocument builds a two-mesh document: "parent" and its "child" share mesh 0 with the solid
// material, "pane" draws mesh 1 with a blended double-sided material.
func testDocument(bufferURI string) map[string]any {
	buffer := map[string]any{"byteLength": 44}
	if bufferURI != "" {
		buffer["uri"] = bufferURI
	}
	return map[string]any{
		"asset":   map[string]any{"version": "2.0"},
		"scene":   0,
		"scenes":  []any{map[string]any{"nodes": []int{0, 2}}},
		"buffers": []any{buffer},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 6},
		},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"},
		},
		"meshes": []any{
			map[string]any{"name": "tri", "primitives": []any{
				map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1, "material": 0},
			}},
			map[string]any{"name": "pane", "primitives": []any{
				map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1, "material": 1},
			}},
		},
		"materials": []any{
			map[string]any{"name": "solid", "pbrMetallicRoughness": map[string]any{"baseColorFactor": []float32{1, 0, 0, 1}}},
			map[string]any{"name": "glass", "alphaMode": "BLEND", "doubleSided": true},
		},
		"nodes": []any{
			map[string]any{"name": "parent", "translation": []float32{1, 0, 0}, "children": []int{1}, "mesh": 0},
			map[string]any{"name": "child", "translation": []float32{0, 2, 0}, "scale": []float32{2, 2, 2}, "mesh": 0},
			map[string]any{"name": "pane", "mesh": 1},
		},
	}
}

func testGLTF(t *testing.T) []byte {
	t.Helper()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(triangleBuffer())
	data, err := json.Marshal(testDocument(uri))
	require.NoError(t, err)
	return data
}

func testGLB(t *testing.T) []byte {
	t.Helper()
	jsonData, err := json.Marshal(testDocument(""))
	require.NoError(t, err)
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}
	bin := triangleBuffer()

	var out bytes.Buffer
	total := uint32(12 + 8 + len(jsonData) + 8 + len(bin))
	for _, v := range []uint32{gltfGLBMagic, gltfGLBVersion, total, uint32(len(jsonData)), gltfGLBChunkJSON} {
		_ = binary.Write(&out, binary.LittleEndian, v)
	}
	out.Write(jsonData)
	for _, v := range []uint32{uint32(len(bin)), gltfGLBChunkBIN} {
		_ = binary.Write(&out, binary.LittleEndian, v)
	}
	out.Write(bin)
	return out.Bytes()
}

func TestLoadSceneReaderComposesHierarchy(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithTextureDecoding(false))
	desc, err := l.LoadSceneReader("test", bytes.NewReader(testGLTF(t)), false)
	require.NoError(t, err)

	assert.Equal(t, "test", desc.Name)
	require.Len(t, desc.Meshes, 2)
	require.Len(t, desc.Materials, 2)
	require.Len(t, desc.Objects, 3)

	parent, child, pane := desc.Objects[0], desc.Objects[1], desc.Objects[2]
	assert.Equal(t, "parent", parent.Name)
	assert.Equal(t, "child", child.Name)
	assert.Equal(t, "pane", pane.Name)

	assert.Equal(t, [3]float32{1, 0, 0}, [3]float32(parent.Transform[12:15]))
	assert.Equal(t, [3]float32{1, 2, 0}, [3]float32(child.Transform[12:15]))
	assert.Equal(t, float32(2), child.Transform[0])
	assert.Equal(t, float32(2), child.Transform[5])
	assert.Equal(t, float32(2), child.Transform[10])

	// Nodes sharing a glTF mesh share the mesh and material.
	assert.Equal(t, parent.Mesh, child.Mesh)
	assert.Equal(t, parent.Material, child.Material)
	assert.NotEqual(t, parent.Mesh, pane.Mesh)
	assert.Equal(t, 1, pane.Material)

	assert.Same(t, desc, l.Get("test"))
	l.Forget("test")
	assert.Nil(t, l.Get("test"))
}

func TestLoadSceneReaderGeneratesNormals(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithTextureDecoding(false))
	desc, err := l.LoadSceneReader("test", bytes.NewReader(testGLTF(t)), false)
	require.NoError(t, err)

	mesh := desc.Meshes[0]
	assert.Equal(t, "tri", mesh.Name())
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices())
	for _, v := range mesh.Vertices() {
		assert.InDelta(t, 1, v.Normal[2], 1e-5)
		assert.InDelta(t, 1, math.Abs(float64(v.Tangent[3])), 1e-5)
	}
}

func TestLoadSceneReaderGLB(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	desc, err := l.LoadSceneReader("binary", bytes.NewReader(testGLB(t)), true)
	require.NoError(t, err)
	assert.Len(t, desc.Objects, 3)
	assert.Len(t, desc.Meshes[0].Vertices(), 3)
}

func TestLoadSceneFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "room.gltf")
	require.NoError(t, os.WriteFile(path, testGLTF(t), 0o644))

	l := NewLoader(BackendTypeGLTF, WithWorkers(2))
	desc, err := l.LoadScene(path)
	require.NoError(t, err)
	assert.Equal(t, "room", desc.Name)
	assert.Same(t, desc, l.Get(path))
}

func pngTexture(t *testing.T, name string) *common.ImportedTexture {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &common.ImportedTexture{Name: name, Data: buf.Bytes(), MimeType: "image/png"}
}

func TestCloseStopsDecodeWorkers(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithWorkers(2)).(*loader)
	require.NotNil(t, l.pool)

	pooled := pngTexture(t, "pooled")
	l.decode([]*common.ImportedTexture{pooled, {Name: "broken", Data: []byte("junk")}})
	assert.Equal(t, 1, pooled.Width)

	l.Close()
	l.Close()
	assert.Nil(t, l.pool)

	inline := pngTexture(t, "inline")
	l.decode([]*common.ImportedTexture{inline})
	staged, err := inline.Staging()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255, 0, 255}, staged.Pixels)

	desc, err := l.LoadSceneReader("after-close", bytes.NewReader(testGLTF(t)), false)
	require.NoError(t, err)
	assert.Len(t, desc.Objects, 3)

	NewLoader(BackendTypeGLTF, WithTextureDecoding(false)).Close()
}

func TestLoadSceneUnsupportedFormat(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	_, err := l.LoadScene("scene.obj")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadSceneMissingFile(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	_, err := l.LoadScene(filepath.Join(t.TempDir(), "missing.glb"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseRejectsBadInput(t *testing.T) {
	p := newGLTFParser()
	err := p.ParseReader(strings.NewReader(`{"asset":{"version":"1.0"}}`), false, "")
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	err = p.ParseReader(strings.NewReader(`{"asset":{"version":"2.0"},"extensionsRequired":["KHR_draco_mesh_compression"]}`), false, "")
	assert.ErrorContains(t, err, "KHR_draco_mesh_compression")

	_, _, err = splitGLB([]byte("notaglbfile!"))
	assert.ErrorIs(t, err, errInvalidGLBMagic)
}

func TestSplitGLB(t *testing.T) {
	jsonChunk, binChunk, err := splitGLB(testGLB(t))
	require.NoError(t, err)
	assert.True(t, json.Valid(jsonChunk))
	assert.Equal(t, triangleBuffer(), binChunk)
}

func TestWalkNodesDetectsCycle(t *testing.T) {
	doc := &gltfDocument{Nodes: []gltfNode{
		{Name: "a", Children: []int{1}},
		{Name: "b", Children: []int{0}},
	}}
	doc.Scenes = []gltfScene{{Nodes: []int{0}}}
	_, err := walkNodes(doc)
	assert.ErrorContains(t, err, "own ancestor")
}

func TestWalkNodesWithoutScenes(t *testing.T) {
	mesh := 0
	doc := &gltfDocument{
		Meshes: []gltfMesh{{}},
		Nodes: []gltfNode{
			{Name: "child", Mesh: &mesh},
			{Name: "root", Children: []int{0}},
		},
	}
	nodes, err := walkNodes(doc)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "child", nodes[0].node)
}

func TestDecodeDataURI(t *testing.T) {
	data, mimeType, err := decodeDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("px")))
	require.NoError(t, err)
	assert.Equal(t, []byte("px"), data)
	assert.Equal(t, "image/png", mimeType)

	_, _, err = decodeDataURI("data:text/plain,hello")
	assert.ErrorIs(t, err, errInvalidDataURI)
	_, _, err = decodeDataURI("file.bin")
	assert.ErrorIs(t, err, errInvalidDataURI)
}

func TestSamplerStagingData(t *testing.T) {
	nearest, clamp, mirror := gltfFilterNearest, gltfWrapClampToEdge, gltfWrapMirroredRepeat
	s := samplerStagingData(&gltfSampler{MagFilter: &nearest, MinFilter: &nearest, WrapS: &clamp, WrapT: &mirror})
	assert.Equal(t, wgpu.FilterModeNearest, s.MagFilter)
	assert.Equal(t, wgpu.FilterModeNearest, s.MinFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, s.AddressModeU)
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, s.AddressModeV)

	def := samplerStagingData(&gltfSampler{})
	assert.Equal(t, wgpu.FilterModeLinear, def.MagFilter)
	assert.Equal(t, wgpu.AddressModeRepeat, def.AddressModeU)
}

func TestBuildSceneGroupsByMaterial(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithTextureDecoding(false))
	desc, err := l.LoadSceneReader("test", bytes.NewReader(testGLTF(t)), false)
	require.NoError(t, err)

	sc := BuildScene(desc, nil)
	assert.Equal(t, "test", sc.Name())
	assert.True(t, sc.Active())
	assert.Equal(t, [][]int{{0, 1}}, sc.OpaqueGroups())
	assert.Equal(t, [][]int{{2}}, sc.TransparentGroups())
	assert.True(t, sc.HasTransparency())

	objects := sc.Objects()
	assert.Same(t, objects[0].Material(), objects[1].Material())

	glass := objects[2].Material()
	assert.True(t, glass.IsTransparent())
	assert.False(t, glass.DepthWrite())
	assert.Equal(t, material.CullModeNone, glass.Cull())

	solid := objects[0].Material()
	assert.Equal(t, [4]float32{1, 0, 0, 1}, solid.BaseColor())
	assert.Equal(t, material.CullModeBackface, solid.Cull())
}

func TestBuildSceneDefaultMaterial(t *testing.T) {
	desc := &SceneDescription{Name: "bare"}
	l := NewLoader(BackendTypeGLTF, WithTextureDecoding(false))
	loaded, err := l.LoadSceneReader("test", bytes.NewReader(testGLTF(t)), false)
	require.NoError(t, err)
	desc.Meshes = loaded.Meshes
	desc.Objects = []ObjectDescription{
		{Name: "a", Mesh: 0, Material: -1},
		{Name: "b", Mesh: 0, Material: -1},
		{Name: "dangling", Mesh: 9, Material: -1},
	}

	sc := BuildScene(desc, nil)
	objects := sc.Objects()
	require.Len(t, objects, 2)
	assert.Equal(t, "default", objects[0].Material().Name())
	assert.Same(t, objects[0].Material(), objects[1].Material())
	assert.False(t, sc.HasTransparency())
}
