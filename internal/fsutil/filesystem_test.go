package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
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

func TestOSFileSystem_ReadDir(t *testing.T) {
	dir := t.TempDir()
	osfs := OSFileSystem{}

	if err := osfs.WriteFile(filepath.Join(dir, "b.csv"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := osfs.WriteFile(filepath.Join(dir, "a.csv"), []byte("y"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	entries, err := osfs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name() != "a.csv" || entries[1].Name() != "b.csv" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestOSFileSystem_CreateAndStat(t *testing.T) {
	dir := t.TempDir()
	osfs := OSFileSystem{}
	path := filepath.Join(dir, "out", "stats.csv")

	if err := osfs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := osfs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "file_name\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := osfs.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != int64(len("file_name\n")) {
		t.Errorf("size = %d", info.Size())
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	err := mfs.WriteFile("/test.txt", testData, 0644)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_CreateAndWrite(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err = w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.Open("/missing.csv")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open missing: err = %v, want fs.ErrNotExist", err)
	}
	if _, err := mfs.ReadFile("/missing.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile missing: err = %v, want fs.ErrNotExist", err)
	}
}

func TestMemoryFileSystem_OpenRead(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/data/I-t_a.csv", []byte("Time (s),Current (A)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := mfs.Open("/data/I-t_a.csv")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "Time (s),Current (A)\n" {
		t.Errorf("got %q", data)
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"/samples/I-V_b.csv", "/samples/I-t_a.csv", "/samples/nested/deep.csv", "/other/x.csv"} {
		if err := mfs.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := mfs.ReadDir("/samples")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"I-V_b.csv", "I-t_a.csv", "nested"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !entries[2].IsDir() {
		t.Error("nested should be a directory")
	}
	if entries[2].Type()&fs.ModeDir == 0 {
		t.Error("nested Type() should carry ModeDir")
	}

	if _, err := mfs.ReadDir("/nowhere"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadDir missing: err = %v", err)
	}
}

func TestMemoryFileSystem_MkdirAllAndExists(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/plots/run/a", os.ModePerm); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, p := range []string{"/plots", "/plots/run", "/plots/run/a"} {
		if !mfs.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
		info, err := mfs.Stat(p)
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%s) = %v, %v; want directory", p, info, err)
		}
	}
	if mfs.Exists("/plots/other") {
		t.Error("unexpected directory /plots/other")
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/out/stats.csv", []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := mfs.Create("/out/stats.csv")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "new"); err != nil {
		t.Fatal(err)
	}
	if data, _ := mfs.ReadFile("/out/stats.csv"); len(data) != 0 {
		t.Errorf("before Close: got %q, want truncated file", data)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if data, _ := mfs.ReadFile("/out/stats.csv"); string(data) != "new" {
		t.Errorf("after Close: got %q", data)
	}
	if info, err := mfs.Stat("/out/stats.csv"); err != nil || info.Size() != 3 || info.IsDir() {
		t.Errorf("Stat = %v, %v", info, err)
	}
}

func TestMemoryFileSystem_DirectoryIsNotAFile(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/samples", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := mfs.Open("/samples"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open dir: err = %v", err)
	}
	if _, err := mfs.ReadDir("/samples"); err != nil {
		t.Errorf("ReadDir empty dir: %v", err)
	}
	if err := mfs.WriteFile("/samples/a.csv", nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := mfs.ReadDir("/samples/a.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadDir on file: err = %v", err)
	}
}

func TestMemoryFileSystem_ConcurrentWrites(t *testing.T) {
	mfs := NewMemoryFileSystem()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := filepath.Join("/run", "plot"+strconv.Itoa(i)+".png")
			w, err := mfs.Create(name)
			if err != nil {
				t.Error(err)
				return
			}
			_, _ = w.Write([]byte{byte(i)})
			_ = w.Close()
		}()
	}
	wg.Wait()

	entries, err := mfs.ReadDir("/run")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 16 {
		t.Errorf("got %d entries, want 16", len(entries))
	}
}
