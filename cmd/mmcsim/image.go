package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/partition/mbr"
)

const (
	sectorSize     = 512
	partitionStart = 2048 // sectors, 1MiB aligned like SD card formatters do
)

type MkImageCmd struct {
	Image string   `arg:"" help:"Image file to create." type:"path"`
	Size  int64    `help:"Image size in MiB." default:"64"`
	Label string   `help:"Volume label." default:"PXAMMC"`
	Files []string `name:"file" short:"f" help:"Copy file into the root directory." type:"existingfile"`
}

func (c *MkImageCmd) Run(cli *CLI) (err error) {
	size := c.Size << 20
	if size < 33<<20 {
		return fmt.Errorf("FAT32 needs at least 33MiB, got %dMiB", c.Size)
	}

	d, err := diskfs.Create(c.Image, size, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.File.Close(); err == nil {
			err = cerr
		}
	}()

	sectors := uint32(size / sectorSize)
	table := &mbr.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		Partitions: []*mbr.Partition{{
			Bootable: false,
			Type:     mbr.Fat32LBA,
			Start:    partitionStart,
			Size:     sectors - partitionStart,
		}},
	}
	if err := d.Partition(table); err != nil {
		return fmt.Errorf("partition: %w", err)
	}

	fs, err := d.CreateFilesystem(disk.FilesystemSpec{
		Partition:   1,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: c.Label,
	})
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}

	for _, name := range c.Files {
		if err := copyFile(fs, name); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(fs filesystem.FileSystem, name string) (err error) {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := fs.OpenFile("/"+strings.ToUpper(filepath.Base(name)), os.O_CREATE|os.O_RDWR)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer func() {
		if cerr := dst.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%s: %w", name, cerr)
		}
	}()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
