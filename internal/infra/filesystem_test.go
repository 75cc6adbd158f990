package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetWorkDirHonorsDotPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("W3B_TOKEN", "test-token")
	t.Setenv("W3B_DOT_PATH", dir)

	got := GetWorkDir("db")
	want := filepath.Join(dir, "db")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Errorf("work dir not created: %v", err)
	}
}
