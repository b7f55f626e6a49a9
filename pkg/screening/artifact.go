package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/adscreen/pkg/storage"
)

// Encoding is the serialization of an artifact file.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingYAML    Encoding = "yaml"
	EncodingMsgpack Encoding = "msgpack"
)

// EncodingForExt maps a file extension (with dot, lower case) to an
// encoding.
func EncodingForExt(ext string) (Encoding, error) {
	switch ext {
	case ".json":
		return EncodingJSON, nil
	case ".yaml", ".yml":
		return EncodingYAML, nil
	case ".msgpack", ".mpk":
		return EncodingMsgpack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, ext)
}

func (e Encoding) unmarshal(data []byte) Unmarshal {
	return func(v any) error {
		switch e {
		case EncodingJSON:
			return json.Unmarshal(data, v)
		case EncodingYAML:
			return yaml.Unmarshal(data, v)
		case EncodingMsgpack:
			return msgpack.Unmarshal(data, v)
		}
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, string(e))
	}
}

// header is the part of every artifact document that selects its decoder.
type header struct {
	Kind string `json:"kind" yaml:"kind" msgpack:"kind"`
}

func kindOf(unmarshal Unmarshal) (string, error) {
	var h header
	if err := unmarshal(&h); err != nil {
		return "", err
	}
	if h.Kind == "" {
		return "", errors.New("missing kind")
	}
	return h.Kind, nil
}

// DecodeNormalizer decodes a normalizer artifact document.
func DecodeNormalizer(enc Encoding, data []byte) (Normalizer, error) {
	u := enc.unmarshal(data)
	kind, err := kindOf(u)
	if err != nil {
		return nil, err
	}
	dec, err := lookupNormalizer(kind)
	if err != nil {
		return nil, err
	}
	return dec(u)
}

// DecodeClassifier decodes a classifier artifact document.
func DecodeClassifier(enc Encoding, data []byte) (Classifier, error) {
	u := enc.unmarshal(data)
	kind, err := kindOf(u)
	if err != nil {
		return nil, err
	}
	dec, err := lookupClassifier(kind)
	if err != nil {
		return nil, err
	}
	return dec(u)
}

// ArtifactSource opens artifact locations. *storage.Resolver implements it.
type ArtifactSource interface {
	Open(ctx context.Context, loc storage.Location) (io.ReadCloser, error)
}

// Models is a loaded normalizer and classifier pair. It is immutable and
// safe to share between goroutines.
type Models struct {
	Normalizer Normalizer
	Classifier Classifier

	ScalerLocation storage.Location
	ModelLocation  storage.Location
}

// Dim returns the vector length both artifacts agree on.
func (m *Models) Dim() int {
	return m.Normalizer.Dim()
}

// LoadArtifacts reads and decodes the scaler and model artifacts. Every
// failure is an *ArtifactLoadError. The two artifacts must agree on the
// vector length.
func LoadArtifacts(ctx context.Context, src ArtifactSource, scalerPath, modelPath string) (*Models, error) {
	scalerLoc, data, err := readArtifact(ctx, src, "scaler", scalerPath)
	if err != nil {
		return nil, err
	}
	norm, err := decodeArtifact(scalerLoc, data, DecodeNormalizer)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: scalerPath, Err: err}
	}

	modelLoc, data, err := readArtifact(ctx, src, "model", modelPath)
	if err != nil {
		return nil, err
	}
	clf, err := decodeArtifact(modelLoc, data, DecodeClassifier)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "model", Path: modelPath, Err: err}
	}

	if norm.Dim() != clf.Dim() {
		return nil, &ArtifactLoadError{
			Artifact: "model",
			Path:     modelPath,
			Err:      fmt.Errorf("%w: model expects %d features, scaler has %d", ErrDimensionMismatch, clf.Dim(), norm.Dim()),
		}
	}
	return &Models{
		Normalizer:     norm,
		Classifier:     clf,
		ScalerLocation: scalerLoc,
		ModelLocation:  modelLoc,
	}, nil
}

func readArtifact(ctx context.Context, src ArtifactSource, artifact, path string) (storage.Location, []byte, error) {
	fail := func(err error) (storage.Location, []byte, error) {
		return storage.Location{}, nil, &ArtifactLoadError{Artifact: artifact, Path: path, Err: err}
	}
	loc, err := storage.ParseLocation(path)
	if err != nil {
		return fail(err)
	}
	rc, err := src.Open(ctx, loc)
	if err != nil {
		return fail(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fail(err)
	}
	return loc, data, nil
}

func decodeArtifact[T any](loc storage.Location, data []byte, decode func(Encoding, []byte) (T, error)) (T, error) {
	enc, err := EncodingForExt(loc.Ext())
	if err != nil {
		var zero T
		return zero, err
	}
	return decode(enc, data)
}
