package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestStageTreeEntryNamesSurviveCreateZip(t *testing.T) {
	srcDir := t.TempDir()
	dataPath := filepath.Join(srcDir, "real-file-on-disk.bin")
	if err := os.WriteFile(dataPath, []byte("payload"), 0600); err != nil {
		t.Fatalf("seed source file: %v", err)
	}

	stagingDir := t.TempDir()
	files, err := StageTree(stagingDir, "MANIFEST.json", []byte(`{"v":1}`), []FileEntry{
		{Name: "files/nested/real-file-on-disk.bin", Path: dataPath},
	})
	if err != nil {
		t.Fatalf("StageTree: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 staged paths, got %d", len(files))
	}

	zipPath := filepath.Join(t.TempDir(), "out.zip")
	if err := CreateZip(ZipOptions{
		Files:      files,
		RootDir:    stagingDir,
		OutputPath: zipPath,
		Compress:   true,
	}); err != nil {
		t.Fatalf("CreateZip: %v", err)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer reader.Close()

	names := make(map[string]bool, len(reader.File))
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["MANIFEST.json"] {
		t.Fatal("expected a zip entry named exactly MANIFEST.json, regardless of the staged file's basename")
	}
	if !names["files/nested/real-file-on-disk.bin"] {
		t.Fatal("expected the staged entry to keep its FileEntry.Name, not its on-disk basename")
	}
}
