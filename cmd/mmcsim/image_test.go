package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/google/go-cmp/cmp"
)

func TestMkImage(t *testing.T) {
	dir := t.TempDir()
	want := []byte("PXA MMC boot script\n")
	src := filepath.Join(dir, "boot.scr")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatal(err)
	}

	img := filepath.Join(dir, "card.img")
	cmd := MkImageCmd{Image: img, Size: 33, Label: "PXAMMC", Files: []string{src}}
	if err := cmd.Run(&CLI{}); err != nil {
		t.Fatal(err)
	}

	d, err := diskfs.Open(img, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		t.Fatal(err)
	}
	defer d.File.Close()

	if d.Size != 33<<20 {
		t.Fatalf("expected size %d, got %d", 33<<20, d.Size)
	}

	pt, err := d.GetPartitionTable()
	if err != nil {
		t.Fatal(err)
	}
	table, ok := pt.(*mbr.Table)
	if !ok {
		t.Fatalf("expected MBR, got %T", pt)
	}
	part := table.Partitions[0]
	if part.Type != mbr.Fat32LBA || part.Start != partitionStart {
		t.Fatalf("unexpected partition: type %v start %d", part.Type, part.Start)
	}

	fs, err := d.GetFilesystem(1)
	if err != nil {
		t.Fatal(err)
	}
	if fs.Type() != filesystem.TypeFat32 {
		t.Fatalf("expected FAT32, got %v", fs.Type())
	}
	if label := strings.TrimSpace(fs.Label()); label != "PXAMMC" {
		t.Fatalf("expected label %q, got %q", "PXAMMC", label)
	}

	f, err := fs.OpenFile("/BOOT.SCR", os.O_RDONLY)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestMkImageTooSmall(t *testing.T) {
	img := filepath.Join(t.TempDir(), "card.img")
	cmd := MkImageCmd{Image: img, Size: 32}
	if err := cmd.Run(&CLI{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Fatal("image created anyway")
	}
}
