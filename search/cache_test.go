package search

import (
	"os"
	"path/filepath"
	"testing"

	"ish/internal/ishlog"
)

func newTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()
	old, had := os.LookupEnv("PATH")
	restore := func() {
		if had {
			os.Setenv("PATH", old)
		} else {
			os.Unsetenv("PATH")
		}
	}
	return &Cache{byName: make(map[string]string), log: ishlog.New(os.Stderr, "")}, restore
}

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRehashPathEarlierWins(t *testing.T) {
	c, restore := newTestCache(t)
	defer restore()

	d1 := t.TempDir()
	d2 := t.TempDir()
	writeExecutable(t, d1, "f")
	writeExecutable(t, d2, "f")

	os.Setenv("PATH", d1+string(filepath.ListSeparator)+d2)
	c.Rehash()

	got, ok := c.Lookup([]byte("f"))
	if !ok {
		t.Fatalf("lookup f: not found")
	}
	want := filepath.Join(d1, "f")
	if string(got) != want {
		t.Errorf("lookup f = %q, want %q (PATH earlier-wins)", got, want)
	}
}

func TestRehashSkipsUnreadableDirectory(t *testing.T) {
	c, restore := newTestCache(t)
	defer restore()

	d := t.TempDir()
	writeExecutable(t, d, "g")

	os.Setenv("PATH", "/no/such/directory/ish-test"+string(filepath.ListSeparator)+d)
	c.Rehash()

	if _, ok := c.Lookup([]byte("g")); !ok {
		t.Errorf("lookup g: not found, want found despite unreadable PATH entry")
	}
}

func TestLookupMiss(t *testing.T) {
	c, restore := newTestCache(t)
	defer restore()

	os.Setenv("PATH", t.TempDir())
	c.Rehash()

	if _, ok := c.Lookup([]byte("no-such-command-ish-test")); ok {
		t.Errorf("lookup of nonexistent command succeeded")
	}
}

func TestRehashClearsStaleEntries(t *testing.T) {
	c, restore := newTestCache(t)
	defer restore()

	d1 := t.TempDir()
	writeExecutable(t, d1, "h")
	os.Setenv("PATH", d1)
	c.Rehash()
	if _, ok := c.Lookup([]byte("h")); !ok {
		t.Fatalf("lookup h: not found after first rehash")
	}

	d2 := t.TempDir()
	os.Setenv("PATH", d2)
	c.Rehash()
	if _, ok := c.Lookup([]byte("h")); ok {
		t.Errorf("lookup h: still found after rehash with PATH no longer containing it")
	}
}
