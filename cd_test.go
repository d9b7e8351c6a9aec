package ish

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"ish/internal/ishlog"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(ishlog.New(io.Discard, ""))
}

func TestCdToArgument(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "ish-cd-test")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tempDir)
	realTempDir, err := filepath.EvalSymlinks(tempDir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)

	subDir := filepath.Join(tempDir, "subdir")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	realSubDir, _ := filepath.EvalSymlinks(subDir)

	st := newTestState(t)
	if code := builtinCd(st, [][]byte{[]byte(tempDir)}); code != 0 {
		t.Fatalf("cd %s returned %d, want 0", tempDir, code)
	}

	if code := builtinCd(st, [][]byte{[]byte("subdir")}); code != 0 {
		t.Fatalf("cd subdir returned %d, want 0", code)
	}

	got, _ := os.Getwd()
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != realSubDir {
		t.Errorf("cwd = %s, want %s", gotReal, realSubDir)
	}
	if st.PrevDir == "" {
		t.Errorf("PrevDir not recorded")
	}

	prevReal, _ := filepath.EvalSymlinks(st.PrevDir)
	if prevReal != realTempDir {
		t.Errorf("PrevDir = %s, want %s", prevReal, realTempDir)
	}
}

func TestCdTooManyArguments(t *testing.T) {
	st := newTestState(t)
	if code := builtinCd(st, [][]byte{[]byte("a"), []byte("b")}); code != 1 {
		t.Errorf("cd a b returned %d, want 1", code)
	}
}

func TestCdNoHome(t *testing.T) {
	old, had := os.LookupEnv("HOME")
	os.Unsetenv("HOME")
	defer func() {
		if had {
			os.Setenv("HOME", old)
		}
	}()

	st := newTestState(t)
	if code := builtinCd(st, nil); code != 2 {
		t.Errorf("cd with no HOME returned %d, want 2", code)
	}
}

func TestCdNonexistentDirectory(t *testing.T) {
	st := newTestState(t)
	if code := builtinCd(st, [][]byte{[]byte("/no/such/directory/ish-test")}); code != 3 {
		t.Errorf("cd to missing dir returned %d, want 3", code)
	}
}
