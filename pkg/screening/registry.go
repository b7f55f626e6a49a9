package screening

import (
	"fmt"
	"slices"
	"sync"
)

// Unmarshal fills v from an artifact document in its source encoding.
type Unmarshal func(v any) error

// NormalizerDecoder builds a Normalizer from an artifact document.
type NormalizerDecoder func(unmarshal Unmarshal) (Normalizer, error)

// ClassifierDecoder builds a Classifier from an artifact document.
type ClassifierDecoder func(unmarshal Unmarshal) (Classifier, error)

var (
	registryMu  sync.RWMutex
	normalizers = make(map[string]NormalizerDecoder)
	classifiers = make(map[string]ClassifierDecoder)
)

// RegisterNormalizer registers a decoder for a normalizer kind, replacing
// any previous registration.
func RegisterNormalizer(kind string, dec NormalizerDecoder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	normalizers[kind] = dec
}

// RegisterClassifier registers a decoder for a classifier kind, replacing
// any previous registration.
func RegisterClassifier(kind string, dec ClassifierDecoder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	classifiers[kind] = dec
}

// NormalizerKinds returns the registered normalizer kinds, sorted.
func NormalizerKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(normalizers)
}

// ClassifierKinds returns the registered classifier kinds, sorted.
func ClassifierKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKeys(classifiers)
}

func lookupNormalizer(kind string) (NormalizerDecoder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	dec, ok := normalizers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: normalizer %q", ErrUnknownKind, kind)
	}
	return dec, nil
}

func lookupClassifier(kind string) (ClassifierDecoder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	dec, ok := classifiers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: classifier %q", ErrUnknownKind, kind)
	}
	return dec, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// validator is implemented by every built-in artifact type.
type validator interface {
	Validate() error
}

// normalizerOf decodes and validates a built-in normalizer type.
func normalizerOf[T any, P interface {
	*T
	Normalizer
	validator
}](unmarshal Unmarshal) (Normalizer, error) {
	p := P(new(T))
	if err := unmarshal(p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// classifierOf decodes and validates a built-in classifier type.
func classifierOf[T any, P interface {
	*T
	Classifier
	validator
}](unmarshal Unmarshal) (Classifier, error) {
	p := P(new(T))
	if err := unmarshal(p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func init() {
	RegisterNormalizer(KindStandardScaler, normalizerOf[StandardScaler])
	RegisterNormalizer(KindMinMaxScaler, normalizerOf[MinMaxScaler])
	RegisterClassifier(KindRandomForest, classifierOf[RandomForest])
	RegisterClassifier(KindLogisticRegression, classifierOf[LogisticRegression])
}
