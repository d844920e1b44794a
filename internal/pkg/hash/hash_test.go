package hash

import (
	"testing"
	"time"
)

func TestSHA256String(t *testing.T) {
	// Known vector for "abc".
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := SHA256String("abc"); got != want {
		t.Errorf("SHA256String(abc) = %s, want %s", got, want)
	}
}

func TestSHA256Short(t *testing.T) {
	full := SHA256String("hello")

	if got := SHA256Short([]byte("hello"), 16); got != full[:16] {
		t.Errorf("SHA256Short = %s, want %s", got, full[:16])
	}

	// n larger than the hash returns the full hash.
	if got := SHA256Short([]byte("hello"), 1000); got != full {
		t.Errorf("SHA256Short with large n = %s, want full hash", got)
	}
}

func TestRunID(t *testing.T) {
	at := time.Unix(1700000000, 0)

	a := RunID("scifact", at)
	b := RunID("scifact", at)
	if a != b {
		t.Error("RunID should be deterministic for the same inputs")
	}
	if len(a) != 16 {
		t.Errorf("RunID length = %d, want 16", len(a))
	}

	if RunID("scifact", at) == RunID("nfcorpus", at) {
		t.Error("different tasks should produce different run IDs")
	}
}

func TestCacheKey(t *testing.T) {
	if CacheKey("model-a", "text") == CacheKey("model-b", "text") {
		t.Error("cache keys must be scoped by model")
	}
	if CacheKey("model-a", "text") != CacheKey("model-a", "text") {
		t.Error("cache key should be deterministic")
	}
}
