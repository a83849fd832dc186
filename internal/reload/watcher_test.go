package reload

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestUniquePathsFiltersDuplicatesAndEmptyValues(t *testing.T) {
	paths := []string{"", "/tmp/a", "/tmp/b", "/tmp/a", "/tmp/c", "/tmp/b"}
	got := uniquePaths(paths)
	want := []string{"/tmp/a", "/tmp/b", "/tmp/c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("uniquePaths() = %v, want %v", got, want)
	}
}

func TestWatcherTrackSnapshotsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	layoutFile := filepath.Join(dir, "displays.yaml")
	missing := filepath.Join(dir, "missing.yaml")
	writeFile(t, layoutFile, "- digits: 4\n  id: 101\n")

	watcher := NewWatcher(layoutFile, missing)

	if len(watcher.files) != 1 {
		t.Fatalf("expected 1 tracked file state, got %d", len(watcher.files))
	}
	if _, ok := watcher.files[layoutFile]; !ok {
		t.Fatalf("layout file %s not tracked", layoutFile)
	}
	if changed := watcher.Check(); len(changed) != 0 {
		t.Fatalf("expected no changes on first check, got %v", changed)
	}
}

func TestWatcherCheckDetectsChangesAndRemovals(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "a.yaml")
	fileB := filepath.Join(dir, "b.yaml")
	writeFile(t, fileA, "first")
	writeFile(t, fileB, "second")

	watcher := NewWatcher(fileA, fileB)

	writeFile(t, fileA, "first-UPDATED")
	if err := os.Remove(fileB); err != nil {
		t.Fatalf("Remove(%s) error = %v", fileB, err)
	}

	changed := watcher.Check()
	expected := []string{fileA, fileB}
	if !reflect.DeepEqual(changed, expected) {
		t.Fatalf("Check() = %v, want %v", changed, expected)
	}

	watcher.Update()
	if changed := watcher.Check(); len(changed) != 0 {
		t.Fatalf("expected no changes after Update(), got %v", changed)
	}
}

func TestWatcherDetectsAppearingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.yaml")

	watcher := NewWatcher(path)
	if changed := watcher.Check(); len(changed) != 0 {
		t.Fatalf("expected no changes for missing file, got %v", changed)
	}

	writeFile(t, path, "- digits: 3\n  id: 7\n")
	if changed := watcher.Check(); !reflect.DeepEqual(changed, []string{path}) {
		t.Fatalf("Check() = %v, want %v", changed, []string{path})
	}
}

func TestWatcherHandlesNilReceiver(t *testing.T) {
	var watcher *Watcher
	watcher.Track("/tmp/x")
	watcher.Update()
	if changed := watcher.Check(); changed != nil {
		t.Fatalf("expected nil slice from nil watcher, got %v", changed)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}
