package bytecode

import (
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Image is the distributable form of a compiled program: a CBOR envelope
// holding one binary function record per function. Canonical encoding keeps
// images byte-stable for content-addressed caching.

const (
	// ImageMagic identifies a Noodle bytecode image.
	ImageMagic = "NBCI"
	// ImageVersion is the current envelope version.
	ImageVersion = 1
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Image is the serialized envelope.
type Image struct {
	Magic         string          `cbor:"magic"`
	Version       int             `cbor:"version"`
	CompilationID string          `cbor:"compilation_id,omitempty"`
	CreatedAt     time.Time       `cbor:"created_at"`
	Entry         string          `cbor:"entry"`
	Functions     []ImageFunction `cbor:"functions"`
}

// ImageFunction pairs a function name with its binary record.
type ImageFunction struct {
	Name   string `cbor:"name"`
	Record []byte `cbor:"record"`
}

// MarshalImage serializes a program to a CBOR image. compilationID may be
// empty; it is carried for cache diagnostics, not identity.
func MarshalImage(p Program, compilationID string) ([]byte, error) {
	img := Image{
		Magic:         ImageMagic,
		Version:       ImageVersion,
		CompilationID: compilationID,
		CreatedAt:     time.Now().UTC(),
		Entry:         EntryName,
	}

	// Envelope order is fixed by sorting; canonical CBOR then makes the
	// whole image deterministic apart from the timestamp.
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		record, err := EncodeFunction(p[name])
		if err != nil {
			return nil, fmt.Errorf("bytecode: encode %q: %w", name, err)
		}
		img.Functions = append(img.Functions, ImageFunction{Name: name, Record: record})
	}

	data, err := cborEncMode.Marshal(&img)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal image: %w", err)
	}
	return data, nil
}

// UnmarshalImage deserializes a CBOR image back into a program.
func UnmarshalImage(data []byte) (Program, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if img.Magic != ImageMagic {
		return nil, fmt.Errorf("bytecode: bad image magic %q", img.Magic)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("bytecode: unsupported image version %d", img.Version)
	}

	p := make(Program, len(img.Functions))
	for _, fn := range img.Functions {
		decoded, _, err := DecodeFunction(fn.Record)
		if err != nil {
			return nil, fmt.Errorf("bytecode: decode %q: %w", fn.Name, err)
		}
		if decoded.Name != fn.Name {
			return nil, fmt.Errorf("bytecode: image names %q but record says %q", fn.Name, decoded.Name)
		}
		p[fn.Name] = decoded
	}
	return p, nil
}
