package dictionary

import (
	"context"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	util "vortcheno/internal/util"
)

// ErrServiceUnavailable means every source in the chain failed; the word's
// validity was never determined.
var ErrServiceUnavailable = errors.New("word validation service unavailable")

// Validator runs the fallback chain: cache, then each source in order.
// Results are cached regardless of which source produced them; dictionary
// membership does not change, so entries are only ever evicted for size.
type Validator struct {
	sources []Source
	cache   *lru.Cache[string, bool]
}

func NewValidator(cacheSize int, sources ...Source) (*Validator, error) {
	if len(sources) == 0 {
		return nil, errors.New("validator needs at least one source")
	}
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Validator{sources: sources, cache: cache}, nil
}

// IsValidWord reports whether word is in the dictionary. A cache hit returns
// immediately with no I/O. On a miss the sources are tried in order; the
// first definitive answer is cached and returned. If every source errors the
// cache is left untouched and ErrServiceUnavailable comes back.
func (v *Validator) IsValidWord(ctx context.Context, word string) (bool, error) {
	word = strings.ToLower(word)

	if valid, ok := v.cache.Get(word); ok {
		return valid, nil
	}

	for _, src := range v.sources {
		valid, err := src.Lookup(ctx, word)
		if err != nil {
			util.LogWarn("Dictionary source %s failed for %q: %v", src.Name(), word, err)
			continue
		}
		v.cache.Add(word, valid)
		return valid, nil
	}

	return false, ErrServiceUnavailable
}

// Available reports whether any source in the chain is currently usable.
func (v *Validator) Available(ctx context.Context) bool {
	for _, src := range v.sources {
		if src.Available(ctx) {
			return true
		}
	}
	return false
}

func (v *Validator) CacheLen() int { return v.cache.Len() }
