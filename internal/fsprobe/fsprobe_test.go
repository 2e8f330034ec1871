package fsprobe

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbe_LeavesNoScratchFiles(t *testing.T) {
	dir := t.TempDir()
	res := Probe(dir, time.Second)
	if !res.Supported {
		t.Skipf("fsnotify not usable here: %s", res.Reason)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("probe left %d entries behind", len(entries))
	}
}

func TestProbe_Rejects(t *testing.T) {
	dir := t.TempDir()
	if res := Probe(filepath.Join(dir, "missing"), time.Second); res.Supported || res.Reason == "" {
		t.Errorf("missing dir: %+v", res)
	}

	file := filepath.Join(dir, "7.tar.xz")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if res := Probe(file, time.Second); res.Supported || res.Reason != "not a directory" {
		t.Errorf("regular file: %+v", res)
	}
}
