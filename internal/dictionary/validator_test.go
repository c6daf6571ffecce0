package dictionary_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	dictionary "vortcheno/internal/dictionary"
)

type fakeSource struct {
	name      string
	words     map[string]bool
	err       error
	available bool
	calls     int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Lookup(_ context.Context, word string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.words[word], nil
}

func (s *fakeSource) Available(_ context.Context) bool { return s.available }

func TestValidatorUsesFirstSource(t *testing.T) {
	primary := &fakeSource{name: "primary", words: map[string]bool{"cat": true}, available: true}
	fallback := &fakeSource{name: "fallback", available: true}
	v, err := dictionary.NewValidator(10, primary, fallback)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}

	valid, err := v.IsValidWord(context.Background(), "cat")
	if err != nil || !valid {
		t.Errorf("IsValidWord = (%v, %v), want (true, nil)", valid, err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback consulted %d times, want 0", fallback.calls)
	}
}

func TestValidatorCacheSkipsLookups(t *testing.T) {
	src := &fakeSource{name: "primary", words: map[string]bool{"dog": true}, available: true}
	v, err := dictionary.NewValidator(10, src)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if valid, err := v.IsValidWord(context.Background(), "dog"); err != nil || !valid {
			t.Fatalf("lookup %d = (%v, %v), want (true, nil)", i, valid, err)
		}
	}
	if src.calls != 1 {
		t.Errorf("source consulted %d times, want 1 (cache should absorb repeats)", src.calls)
	}
	if v.CacheLen() != 1 {
		t.Errorf("CacheLen = %d, want 1", v.CacheLen())
	}

	// Negative answers are cached too.
	v.IsValidWord(context.Background(), "zzz")
	v.IsValidWord(context.Background(), "zzz")
	if src.calls != 2 {
		t.Errorf("source consulted %d times, want 2", src.calls)
	}
}

func TestValidatorCaseInsensitive(t *testing.T) {
	src := &fakeSource{name: "primary", words: map[string]bool{"cat": true}, available: true}
	v, _ := dictionary.NewValidator(10, src)

	if valid, err := v.IsValidWord(context.Background(), "CAT"); err != nil || !valid {
		t.Errorf("IsValidWord(CAT) = (%v, %v), want (true, nil)", valid, err)
	}
	v.IsValidWord(context.Background(), "cat")
	if src.calls != 1 {
		t.Errorf("source consulted %d times, want 1", src.calls)
	}
}

func TestValidatorFallsBackOnError(t *testing.T) {
	primary := &fakeSource{name: "primary", err: errors.New("disk on fire")}
	fallback := &fakeSource{name: "fallback", words: map[string]bool{"cat": true}, available: true}
	v, _ := dictionary.NewValidator(10, primary, fallback)

	valid, err := v.IsValidWord(context.Background(), "cat")
	if err != nil || !valid {
		t.Errorf("IsValidWord = (%v, %v), want (true, nil) via fallback", valid, err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", primary.calls, fallback.calls)
	}
}

func TestValidatorAllSourcesDown(t *testing.T) {
	primary := &fakeSource{name: "primary", err: errors.New("boom")}
	fallback := &fakeSource{name: "fallback", err: errors.New("also boom")}
	v, _ := dictionary.NewValidator(10, primary, fallback)

	_, err := v.IsValidWord(context.Background(), "cat")
	if !errors.Is(err, dictionary.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
	if v.CacheLen() != 0 {
		t.Errorf("CacheLen = %d, want 0 (failures must not poison the cache)", v.CacheLen())
	}
}

func TestValidatorAvailable(t *testing.T) {
	down := &fakeSource{name: "down"}
	up := &fakeSource{name: "up", available: true}

	v, _ := dictionary.NewValidator(10, down, up)
	if !v.Available(context.Background()) {
		t.Error("Available = false with one healthy source, want true")
	}

	v2, _ := dictionary.NewValidator(10, down)
	if v2.Available(context.Background()) {
		t.Error("Available = true with no healthy sources, want false")
	}
}

func TestValidatorRequiresSources(t *testing.T) {
	if _, err := dictionary.NewValidator(10); err == nil {
		t.Error("NewValidator with no sources should fail")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# comment line\ncat\nDog\n\n  bird  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write word list: %v", err)
	}

	src, err := dictionary.NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	if src.Len() != 3 {
		t.Errorf("Len = %d, want 3", src.Len())
	}

	for _, word := range []string{"cat", "dog", "DOG", "bird"} {
		if ok, _ := src.Lookup(context.Background(), word); !ok {
			t.Errorf("Lookup(%q) = false, want true", word)
		}
	}
	if ok, _ := src.Lookup(context.Background(), "comment"); ok {
		t.Error("comment line leaked into the lexicon")
	}
	if !src.Available(context.Background()) {
		t.Error("Available = false for a loaded list, want true")
	}
}

func TestFileSourceMissingOrEmpty(t *testing.T) {
	if _, err := dictionary.NewFileSource(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# only comments\n\n"), 0o644); err != nil {
		t.Fatalf("write word list: %v", err)
	}
	if _, err := dictionary.NewFileSource(path); err == nil {
		t.Error("empty word list should fail")
	}
}

func TestWebSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cat":
			w.WriteHeader(http.StatusOK)
		case "/zzz":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	src := dictionary.NewWebSource(srv.URL, 2*time.Second)

	if ok, err := src.Lookup(context.Background(), "cat"); err != nil || !ok {
		t.Errorf("Lookup(cat) = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := src.Lookup(context.Background(), "zzz"); err != nil || ok {
		t.Errorf("Lookup(zzz) = (%v, %v), want (false, nil)", ok, err)
	}
	if !src.Available(context.Background()) {
		t.Error("Available = false after clean lookups, want true")
	}

	if _, err := src.Lookup(context.Background(), "boom"); err == nil {
		t.Error("Lookup(boom) should surface the server error")
	}
	if src.Available(context.Background()) {
		t.Error("Available = true after a server error, want false")
	}
}
