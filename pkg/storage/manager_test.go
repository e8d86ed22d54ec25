package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, "profile_pics")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// Directory must exist immediately, even before any save.
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Expected pictures directory to exist: %v", err)
	}

	if manager.Count() != 0 {
		t.Error("Expected initial picture count to be 0")
	}

	testData := []byte("test picture data")
	filename := "20250314_150926_testuser_profile.jpg"

	path, err := manager.SavePicture(bytes.NewReader(testData), filename)
	if err != nil {
		t.Fatalf("Failed to save picture: %v", err)
	}

	if path != filepath.Join(dir, filename) {
		t.Errorf("Unexpected saved path: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if !manager.Exists(filename) {
		t.Error("Expected Exists to return true for saved picture")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected picture count to be 1, got %d", manager.Count())
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temp file to be cleaned up")
	}
}

func TestManagerScansExistingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile_pics")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	existing := filepath.Join(dir, "20250101_000000_olduser_profile.jpg")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}
	// Non-jpg files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create text file: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Count() != 1 {
		t.Errorf("Expected count 1 after scan, got %d", manager.Count())
	}
	if !manager.Exists("20250101_000000_olduser_profile.jpg") {
		t.Error("Expected existing picture to be detected")
	}
}

func TestManagerCountFor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile_pics")
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	saves := []string{
		"20250101_000000_usera_profile.jpg",
		"20250102_000000_usera_profile.jpg",
		"20250101_000000_userb_profile.jpg",
	}
	for _, name := range saves {
		if _, err := manager.SavePicture(bytes.NewReader([]byte("pic")), name); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
	}

	if got := manager.CountFor("usera"); got != 2 {
		t.Errorf("Expected 2 pictures for usera, got %d", got)
	}
	if got := manager.CountFor("userb"); got != 1 {
		t.Errorf("Expected 1 picture for userb, got %d", got)
	}
	if got := manager.CountFor("nobody"); got != 0 {
		t.Errorf("Expected 0 pictures for nobody, got %d", got)
	}
}
