// Package fatvol implements a single-volume, flat-namespace FAT filesystem
// on top of a block-addressable virtual disk (github.com/fatvol/fatvol/disk).
//
// It generalizes github.com/diskfs/go-diskfs/filesystem/fat32's on-disk
// layout — a superblock, a file allocation table, a directory, a data
// region — down to the flat, single-directory, no-subdirectory volume this
// package implements: one FAT entry per block, one directory entry per
// file, no long filenames, no timestamps, no permissions.
//
// The C library this design comes from kept its mounted state in process
// globals. This package instead threads a single *Session through every
// operation (see the design note on global mutable state in SPEC_FULL.md):
// a Session is created by Mount and is the only way to reach Create,
// Delete, Open, Close, Read, Write, Lseek, Truncate, GetFileSize and
// ListFiles. It becomes invalid the moment Unmount returns.
package fatvol

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fatvol/fatvol/disk"
)

const (
	// BlockSize is the size in bytes of one disk block.
	BlockSize = disk.BlockSize
	// DiskBlocks is the total number of blocks on a volume.
	DiskBlocks = disk.BlockCount
	// MaxFiles is the maximum number of files the directory can hold.
	MaxFiles = 64
	// MaxName is the maximum length, in bytes, of a file name.
	MaxName = 15
	// MaxFDs is the maximum number of simultaneously open descriptors.
	MaxFDs = 32
	// MaxFileSize is the logical cap on a single file's size: 4096 blocks
	// of BlockSize bytes each (16 MiB). The FAT can constrain a file
	// further: the DiskBlocks-dataIdx data blocks are shared by every file.
	MaxFileSize = 4096 * BlockSize

	superblockIdx = 0
	fatIdx        = 1
	// fatBytesPerEntry, unlike the 2-byte entries that would coincidentally
	// fit fat_len=4 blocks, are a full signed 32-bit int per spec.md §3/§6;
	// fatLen is sized to actually hold DiskBlocks of them (see SPEC_FULL.md).
	fatBytesPerEntry = 4
	fatLen           = (DiskBlocks*fatBytesPerEntry + BlockSize - 1) / BlockSize
	dirIdx           = fatIdx + fatLen
	dirLenBlocks     = 1
	dataIdx          = dirIdx + dirLenBlocks
)

// superblock mirrors spec.md §3's five-field record exactly, persisted as
// five little-endian signed 32-bit integers in block 0.
type superblock struct {
	fatIdx  int32
	fatLen  int32
	dirIdx  int32
	dirLen  int32 // count of in-use directory entries, not a block count
	dataIdx int32
}

func newSuperblock() superblock {
	return superblock{
		fatIdx:  fatIdx,
		fatLen:  fatLen,
		dirIdx:  dirIdx,
		dirLen:  0,
		dataIdx: dataIdx,
	}
}

func (s superblock) bytes() []byte {
	b := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(s.fatIdx))
	binary.LittleEndian.PutUint32(b[4:8], uint32(s.fatLen))
	binary.LittleEndian.PutUint32(b[8:12], uint32(s.dirIdx))
	binary.LittleEndian.PutUint32(b[12:16], uint32(s.dirLen))
	binary.LittleEndian.PutUint32(b[16:20], uint32(s.dataIdx))
	return b
}

func superblockFromBytes(b []byte) superblock {
	return superblock{
		fatIdx:  int32(binary.LittleEndian.Uint32(b[0:4])),
		fatLen:  int32(binary.LittleEndian.Uint32(b[4:8])),
		dirIdx:  int32(binary.LittleEndian.Uint32(b[8:12])),
		dirLen:  int32(binary.LittleEndian.Uint32(b[12:16])),
		dataIdx: int32(binary.LittleEndian.Uint32(b[16:20])),
	}
}

func (s superblock) valid() bool {
	return s.fatIdx == fatIdx && s.fatLen == fatLen && s.dirIdx == dirIdx && s.dataIdx == dataIdx
}

// Session is a mounted fatvol volume: the in-memory superblock, FAT and
// directory that are authoritative between Mount and Unmount, plus the
// open-descriptor table that never survives a remount.
type Session struct {
	id   uuid.UUID
	path string
	d    *disk.Disk

	sb  superblock
	fat fat
	dir directory

	descriptors [MaxFDs]descriptor
	mounted     bool
}

// log is overridable via SetLogger for callers that want fatvol's
// structured logging routed somewhere other than logrus's standard logger.
var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the logger fatvol uses for lifecycle and allocation
// events.
func SetLogger(l logrus.FieldLogger) {
	log = l
}

// MakeFS formats a fresh volume: creates the backing disk image, writes an
// empty FAT, an empty directory, and the superblock, then closes the image.
// path must not already exist.
func MakeFS(path string) error {
	if err := disk.Make(path); err != nil {
		return fmt.Errorf("make_fs: %w", err)
	}
	d, err := disk.Open(path)
	if err != nil {
		return fmt.Errorf("make_fs: %w", err)
	}
	defer d.Close()

	sb := newSuperblock()
	f := newFAT()
	dr := newDirectory()

	if err := writeSuperblock(d, sb); err != nil {
		return fmt.Errorf("make_fs: %w", err)
	}
	if err := writeFAT(d, f); err != nil {
		return fmt.Errorf("make_fs: %w", err)
	}
	if err := writeDirectory(d, dr); err != nil {
		return fmt.Errorf("make_fs: %w", err)
	}

	log.WithField("path", path).Info("fatvol: formatted new volume")
	return nil
}

// Mount loads a previously-formatted volume's metadata into memory and
// returns a Session for performing file operations against it. Every
// descriptor and every directory entry's ref_cnt start unused/zero: neither
// survives a mount boundary.
func Mount(path string) (*Session, error) {
	d, err := disk.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mount_fs: %w", err)
	}

	sb, err := readSuperblock(d)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("mount_fs: %w", err)
	}
	if !sb.valid() {
		_ = d.Close()
		return nil, fmt.Errorf("mount_fs: %w", ErrNotFormatted)
	}

	f, err := readFAT(d)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("mount_fs: %w", err)
	}
	dr, err := readDirectory(d, int(sb.dirLen))
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("mount_fs: %w", err)
	}

	s := &Session{
		id:      uuid.New(),
		path:    path,
		d:       d,
		sb:      sb,
		fat:     f,
		dir:     dr,
		mounted: true,
	}
	log.WithFields(logrus.Fields{"path": path, "session": s.id}).Info("fatvol: mounted")
	return s, nil
}

// ID returns the session's non-persisted identifier, for log correlation.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Unmount writes the in-memory superblock, FAT and directory back to disk
// and closes the image. Every descriptor returned by a prior Open on this
// Session becomes permanently invalid.
func (s *Session) Unmount() error {
	if !s.mounted {
		return fmt.Errorf("umount_fs: %w", ErrNotMounted)
	}

	s.sb.dirLen = int32(s.dir.usedCount())
	if err := writeSuperblock(s.d, s.sb); err != nil {
		return fmt.Errorf("umount_fs: %w", err)
	}
	if err := writeFAT(s.d, s.fat); err != nil {
		return fmt.Errorf("umount_fs: %w", err)
	}
	if err := writeDirectory(s.d, s.dir); err != nil {
		return fmt.Errorf("umount_fs: %w", err)
	}
	if err := s.d.Close(); err != nil {
		return fmt.Errorf("umount_fs: %w", err)
	}

	for i := range s.descriptors {
		s.descriptors[i] = descriptor{}
	}
	s.mounted = false
	log.WithFields(logrus.Fields{"path": s.path, "session": s.id}).Info("fatvol: unmounted")
	return nil
}

func writeSuperblock(d *disk.Disk, sb superblock) error {
	return d.WriteBlock(superblockIdx, sb.bytes())
}

func readSuperblock(d *disk.Disk) (superblock, error) {
	buf := make([]byte, BlockSize)
	if err := d.ReadBlock(superblockIdx, buf); err != nil {
		return superblock{}, err
	}
	return superblockFromBytes(buf), nil
}
