package dictionary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	util "vortcheno/internal/util"
)

// Source answers whether a word exists in some lexicon. Lookup returns an
// error only when the source itself failed; an unknown word is (false, nil).
type Source interface {
	Name() string
	Lookup(ctx context.Context, word string) (bool, error)
	Available(ctx context.Context) bool
}

// FileSource is the fast local lexicon: a newline-separated word list loaded
// into a set at construction. Lookups never do I/O.
type FileSource struct {
	path  string
	words map[string]struct{}
}

func NewFileSource(path string) (*FileSource, error) {
	util.LogInfo("Loading word list from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load word list: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	words := make(map[string]struct{}, len(lines))
	lo.ForEach(lines, func(line string, _ int) {
		w := strings.ToLower(strings.TrimSpace(line))
		if w != "" && !strings.HasPrefix(w, "#") {
			words[w] = struct{}{}
		}
	})

	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s is empty", path)
	}

	util.LogInfo("Loaded %d words from %s", len(words), path)
	return &FileSource{path: path, words: words}, nil
}

func (s *FileSource) Name() string { return "wordlist" }

func (s *FileSource) Lookup(_ context.Context, word string) (bool, error) {
	_, ok := s.words[strings.ToLower(word)]
	return ok, nil
}

func (s *FileSource) Available(_ context.Context) bool { return len(s.words) > 0 }

func (s *FileSource) Len() int { return len(s.words) }

// WebSource is the slow remote fallback: an HTTP dictionary API that answers
// 200 for known words and 404 for unknown ones. Every request is bounded by
// the client timeout so a dead endpoint cannot wedge a chat forever.
type WebSource struct {
	baseURL string
	client  *http.Client
	healthy atomic.Bool
}

func NewWebSource(baseURL string, timeout time.Duration) *WebSource {
	s := &WebSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
	s.healthy.Store(true)
	return s
}

func (s *WebSource) Name() string { return "webapi" }

func (s *WebSource) Lookup(ctx context.Context, word string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/"+url.PathEscape(strings.ToLower(word)), nil)
	if err != nil {
		return false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.healthy.Store(false)
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		s.healthy.Store(true)
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		s.healthy.Store(true)
		return false, nil
	default:
		s.healthy.Store(false)
		return false, fmt.Errorf("dictionary api returned %d for %q", resp.StatusCode, word)
	}
}

// Available reflects the outcome of the most recent lookup; it never probes
// the network on its own.
func (s *WebSource) Available(_ context.Context) bool { return s.healthy.Load() }
