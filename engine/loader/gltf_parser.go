package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI     = errors.New("invalid data URI")
	errBufferSizeMismatch = errors.New("buffer shorter than its byteLength")
	errNoDocument         = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

// gltfParser reads a glTF or GLB container, resolves its buffers and exposes typed accessor reads.
type gltfParser interface {
	// Parse reads and parses a .gltf or .glb file. External buffers and images resolve relative to its directory.
	//
	// Parameters:
	//   - path: path to the file
	//
	// Returns:
	//   - error: error if reading or parsing fails
	Parse(path string) error

	// ParseReader parses a complete glTF JSON or GLB stream.
	//
	// Parameters:
	//   - r: the stream
	//   - isGLB: true for the binary container
	//   - baseDir: the directory external URIs resolve against, may be empty
	//
	// Returns:
	//   - error: error if reading or parsing fails
	ParseReader(r io.Reader, isGLB bool, baseDir string) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory external URIs resolve against.
	BaseDir() string

	// AccessorBytes returns the elements of an accessor tightly packed, with any byte stride removed.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - []byte: count * element size bytes
	//   - *gltfAccessor: the accessor
	//   - error: error if the accessor or its views are out of range or sparse
	AccessorBytes(index int) ([]byte, *gltfAccessor, error)

	// BufferViewBytes returns a copy of a buffer view's bytes, as used by embedded images.
	//
	// Parameters:
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the bytes
	//   - error: error if the view is out of range
	BufferViewBytes(index int) ([]byte, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	p.baseDir = filepath.Dir(path)

	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic)
	return p.parse(data, isGLB)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool, baseDir string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	p.baseDir = baseDir
	return p.parse(data, isGLB)
}

func (p *gltfParserImpl) parse(data []byte, isGLB bool) error {
	jsonData := data
	if isGLB {
		var err error
		if jsonData, p.binChunk, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("decode glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if len(doc.ExtensionsRequired) > 0 {
		return fmt.Errorf("required extensions are not supported: %s", strings.Join(doc.ExtensionsRequired, ", "))
	}
	if err := p.loadBuffers(&doc); err != nil {
		return err
	}
	p.document = &doc
	return nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container. Unknown chunk types are skipped.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	r := bytes.NewReader(data)
	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}

	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read GLB chunk header: %w", err)
		}
		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("GLB chunk of %d bytes overruns the file", chunk.ChunkLength)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, fmt.Errorf("read GLB chunk: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = body
		case gltfGLBChunkBIN:
			binChunk = body
		}
	}
	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, binChunk, nil
}

func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := p.readURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// readURI resolves a data URI or a file relative to the base directory.
func (p *gltfParserImpl) readURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		data, _, err := decodeDataURI(uri)
		return data, err
	}
	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data> and returns the bytes and the media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errInvalidDataURI
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: only base64 payloads are supported", errInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, mimeType, nil
}

func (p *gltfParserImpl) AccessorBytes(index int) ([]byte, *gltfAccessor, error) {
	doc := p.document
	if doc == nil {
		return nil, nil, errNoDocument
	}
	if index < 0 || index >= len(doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := &doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, acc, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}

	elemSize := gltfComponentSize(acc.ComponentType) * gltfComponentCount(acc.Type)
	if elemSize == 0 {
		return nil, acc, fmt.Errorf("accessor %d: unsupported layout %s/%d", index, acc.Type, acc.ComponentType)
	}
	out := make([]byte, acc.Count*elemSize)
	// An accessor without a buffer view reads as zeros.
	if acc.BufferView == nil {
		return out, acc, nil
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, acc, fmt.Errorf("accessor %d: buffer view %d out of range", index, *acc.BufferView)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, acc, fmt.Errorf("accessor %d: buffer %d out of range", index, bv.Buffer)
	}
	src := doc.Buffers[bv.Buffer].Data

	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	base := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 {
		if last := base + (acc.Count-1)*stride + elemSize; last > len(src) || last > bv.ByteOffset+bv.ByteLength {
			return nil, acc, fmt.Errorf("accessor %d overruns its buffer view", index)
		}
	}
	for i := 0; i < acc.Count; i++ {
		copy(out[i*elemSize:(i+1)*elemSize], src[base+i*stride:])
	}
	return out, acc, nil
}

func (p *gltfParserImpl) BufferViewBytes(index int) ([]byte, error) {
	doc := p.document
	if doc == nil {
		return nil, errNoDocument
	}
	if index < 0 || index >= len(doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", index)
	}
	bv := &doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
	}
	src := doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if end > len(src) {
		return nil, fmt.Errorf("buffer view %d overruns buffer %d", index, bv.Buffer)
	}
	return bytes.Clone(src[bv.ByteOffset:end]), nil
}

// readFloatAccessor reads a float accessor of the given element type into fixed-size arrays.
func readFloatAccessor[T any](p gltfParser, index int, elemType string) ([]T, error) {
	data, acc, err := p.AccessorBytes(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != elemType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d is %s/%d, want %s/float", index, acc.Type, acc.ComponentType, elemType)
	}
	out := make([]T, acc.Count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("accessor %d: %w", index, err)
	}
	return out, nil
}

// readIndexAccessor reads an index accessor of any unsigned component type as uint32.
func readIndexAccessor(p gltfParser, index int) ([]uint32, error) {
	data, acc, err := p.AccessorBytes(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", index, acc.Type)
	}
	out := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		for i := range out {
			out[i] = uint32(data[i])
		}
	case gltfComponentTypeUnsignedShort:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case gltfComponentTypeUnsignedInt:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	default:
		return nil, fmt.Errorf("index accessor %d has component type %d", index, acc.ComponentType)
	}
	return out, nil
}

// readColorAccessor reads COLOR_0 as RGBA floats. Float and normalized unsigned byte or short
// components are accepted, in VEC3 or VEC4 form; a missing alpha reads as 1.
func readColorAccessor(p gltfParser, index int) ([][4]float32, error) {
	data, acc, err := p.AccessorBytes(index)
	if err != nil {
		return nil, err
	}
	n := gltfComponentCount(acc.Type)
	if n != 3 && n != 4 {
		return nil, fmt.Errorf("color accessor %d is %s, want VEC3 or VEC4", index, acc.Type)
	}

	var component func(i int) float32
	switch acc.ComponentType {
	case gltfComponentTypeFloat:
		floats := make([]float32, acc.Count*n)
		if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, floats); err != nil {
			return nil, err
		}
		component = func(i int) float32 { return floats[i] }
	case gltfComponentTypeUnsignedByte:
		component = func(i int) float32 { return float32(data[i]) / 255 }
	case gltfComponentTypeUnsignedShort:
		component = func(i int) float32 { return float32(binary.LittleEndian.Uint16(data[i*2:])) / 65535 }
	default:
		return nil, fmt.Errorf("color accessor %d has component type %d", index, acc.ComponentType)
	}

	out := make([][4]float32, acc.Count)
	for v := range out {
		out[v][3] = 1
		for c := 0; c < n; c++ {
			out[v][c] = component(v*n + c)
		}
	}
	return out, nil
}

func gltfComponentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	}
	return 0
}

func gltfComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat4:
		return 16
	}
	return 0
}
