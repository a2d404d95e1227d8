package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_WriteFileAtomic(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()
	path := filepath.Join(dir, "infos.cbor")

	if err := fs.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.WriteFileAtomic(path, []byte("new content"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "new content" {
		t.Errorf("expected new content, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestOSFileSystem_WriteFileAtomic_MissingDir(t *testing.T) {
	fs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "missing", "infos.cbor")

	if err := fs.WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if fs.Exists(path) {
		t.Error("no file should be left behind")
	}
}

func TestOSFileSystem_ListFiles(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()

	for _, name := range []string{"2.bin", "10.bin", "1.bin"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := fs.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 files, got %v", names)
	}
	for _, n := range names {
		if n == "sub" {
			t.Error("directories must not be listed")
		}
	}
}

func TestOSFileSystem_ListFiles_FollowsSymlinks(t *testing.T) {
	fs := OSFileSystem{}
	src := t.TempDir()
	dir := t.TempDir()

	target := filepath.Join(src, "capture.bin")
	if err := os.WriteFile(target, []byte("pts"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "3.bin")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(src, filepath.Join(dir, "linked-dir")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(src, "gone.bin"), filepath.Join(dir, "4.bin")); err != nil {
		t.Fatal(err)
	}

	names, err := fs.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 2 || names[0] != "3.bin" || names[1] != "4.bin" {
		t.Errorf("expected [3.bin 4.bin], got %v", names)
	}
}

func TestCheckExists(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()
	file := filepath.Join(dir, "label.json")
	if err := os.WriteFile(file, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	ok, err := CheckExists(fs, file)
	if err != nil || !ok {
		t.Errorf("existing file: got (%v, %v)", ok, err)
	}
	ok, err = CheckExists(fs, filepath.Join(dir, "missing.json"))
	if err != nil || ok {
		t.Errorf("missing file: got (%v, %v)", ok, err)
	}
	// A regular file used as a directory fails with ENOTDIR, not ENOENT.
	ok, err = CheckExists(fs, filepath.Join(file, "child"))
	if err == nil || ok {
		t.Errorf("stat through a file: got (%v, %v), want error", ok, err)
	}

	mfs := NewMemoryFileSystem()
	ok, err = CheckExists(mfs, "/nope")
	if err != nil || ok {
		t.Errorf("memory missing file: got (%v, %v)", ok, err)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	data[0] = 'X'
	again, _ := mfs.ReadFile("/test.txt")
	if string(again) != string(testData) {
		t.Error("ReadFile must return a copy")
	}
}

func TestMemoryFileSystem_ListFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/data/lidar/3.bin", nil, 0644)
	_ = mfs.WriteFile("/data/lidar/1.bin", nil, 0644)
	_ = mfs.WriteFile("/data/label/1_bin.json", nil, 0644)

	names, err := mfs.ListFiles("/data/lidar")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 2 || names[0] != "1.bin" || names[1] != "3.bin" {
		t.Errorf("unexpected listing %v", names)
	}

	if _, err := mfs.ListFiles("/data/image"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestMemoryFileSystem_RemoveAndExists(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/out/results_udi.json", []byte("{}"), 0644)

	if !mfs.Exists("/out") {
		t.Error("parent directory should exist after WriteFile")
	}
	if err := mfs.Remove("/out"); err == nil {
		t.Error("expected error removing non-empty directory")
	}
	if err := mfs.Remove("/out/results_udi.json"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if mfs.Exists("/out/results_udi.json") {
		t.Error("file should be gone")
	}
	if err := mfs.Remove("/out/results_udi.json"); err == nil {
		t.Error("expected error removing missing file")
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/a/b", 0755)
	_ = mfs.WriteFile("/a/b/c.txt", []byte("abc"), 0600)

	info, err := mfs.Stat("/a/b")
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory, got %v %v", info, err)
	}
	info, err = mfs.Stat("/a/b/c.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 3 || info.Mode() != 0600 {
		t.Errorf("unexpected file info size=%d mode=%v", info.Size(), info.Mode())
	}
	if _, err := mfs.Stat("/a/missing"); err == nil {
		t.Error("expected error for missing file")
	}
}
