package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	defaultDimensions = 256
	minTokenLen       = 3
)

// Hashing is the offline embedder. Each token contributes +1 or -1 to one of
// dims buckets chosen by its FNV-1a hash, and the result is L2-normalized.
// Identical text yields identical vectors across runs and platforms, with no
// network access.
type Hashing struct {
	dims int
}

// NewHashing creates a hashing embedder; dims <= 0 selects the default width
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &Hashing{dims: dims}
}

// Name identifies the embedder for cache keys and logs
func (h *Hashing) Name() string {
	return fmt.Sprintf("hashing-%d", h.dims)
}

// Dimensions is the vector width
func (h *Hashing) Dimensions() int {
	return h.dims
}

// Embed computes the bucketed token vector. Text with no usable tokens
// yields the zero vector.
func (h *Hashing) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dims)

	for _, tok := range tokenize(text) {
		hf := fnv.New64a()
		hf.Write([]byte(tok))
		sum := hf.Sum64()

		idx := int(sum % uint64(h.dims))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// tokenize lowercases and splits on anything that is not a letter, digit or
// hyphen, dropping tokens shorter than minTokenLen
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() >= minTokenLen {
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}
