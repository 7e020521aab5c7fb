package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestListArtifacts(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "b.mp4"), 10)
	writeFile(t, filepath.Join(dir, "a.m4a"), 10)
	writeFile(t, filepath.Join(dir, "c.mp4.part"), 10)
	writeFile(t, filepath.Join(dir, "c.mp4.ytdl"), 10)
	writeFile(t, filepath.Join(dir, ".hidden.mp4"), 10)
	writeFile(t, filepath.Join(dir, "noext"), 10)
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	files, err := ListArtifacts(dir)
	if err != nil {
		t.Fatalf("ListArtifacts failed: %v", err)
	}

	expected := []string{filepath.Join(dir, "a.m4a"), filepath.Join(dir, "b.mp4")}
	if len(files) != len(expected) {
		t.Fatalf("Expected %d files, got %d: %v", len(expected), len(files), files)
	}
	for i := range expected {
		if files[i] != expected[i] {
			t.Errorf("File %d: expected %s, got %s", i, expected[i], files[i])
		}
	}
}

func TestListArtifacts_EmptyAndMissing(t *testing.T) {
	files, err := ListArtifacts(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no files, got %v", files)
	}

	if _, err := ListArtifacts(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.mp3")
	writeFile(t, path, 1234)

	size, err := FileSize(path)
	if err != nil {
		t.Fatalf("FileSize failed: %v", err)
	}
	if size != 1234 {
		t.Errorf("Expected size 1234, got %d", size)
	}

	if _, err := FileSize(dir); err == nil {
		t.Error("Expected error for directory")
	}
	if _, err := FileSize(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsWithinDir(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		path     string
		expected bool
	}{
		{filepath.Join(dir, "a.mp4"), true},
		{filepath.Join(dir, "sub", "a.mp4"), true},
		{dir, false},
		{filepath.Join(dir, "..", "a.mp4"), false},
		{filepath.Join(dir, "..", filepath.Base(dir)+"x", "a.mp4"), false},
		{"/etc/passwd", false},
	}

	for _, test := range tests {
		if got := IsWithinDir(dir, test.path); got != test.expected {
			t.Errorf("IsWithinDir(%s, %s) = %v, expected %v", dir, test.path, got, test.expected)
		}
	}
}

func TestFileExtension(t *testing.T) {
	tests := map[string]string{
		"/a/b/video.MP4": "mp4",
		"song.mp3":       "mp3",
		"noext":          "",
		"x.tar.gz":       "gz",
	}
	for path, expected := range tests {
		if got := FileExtension(path); got != expected {
			t.Errorf("FileExtension(%s) = %s, expected %s", path, got, expected)
		}
	}
}
