package fatvol

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fatvol/fatvol/disk"
)

const dirEntrySize = 32 // used:i32, name[16], size:i32, head:i32, ref_cnt:i32

// dirEntry is one slot of the flat directory, persisted per spec.md §6.
// ref_cnt is persisted but always reset to zero on Mount: descriptors never
// survive a mount boundary, so a reloaded ref_cnt would be meaningless.
type dirEntry struct {
	used   bool
	name   string
	size   uint32
	head   int32
	refCnt uint32
}

type directory struct {
	entries [MaxFiles]dirEntry
}

func newDirectory() directory {
	return directory{}
}

func (d *directory) usedCount() int {
	n := 0
	for i := range d.entries {
		if d.entries[i].used {
			n++
		}
	}
	return n
}

func (d *directory) findByName(name string) (int, bool) {
	for i := range d.entries {
		if d.entries[i].used && d.entries[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (d *directory) findByHead(head int32) (int, bool) {
	for i := range d.entries {
		if d.entries[i].used && d.entries[i].head == head {
			return i, true
		}
	}
	return -1, false
}

func (d *directory) firstFreeSlot() (int, bool) {
	for i := range d.entries {
		if !d.entries[i].used {
			return i, true
		}
	}
	return -1, false
}

func (d directory) bytes() []byte {
	b := make([]byte, dirLenBlocks*BlockSize)
	for i := range d.entries {
		e := d.entries[i]
		off := i * dirEntrySize
		used := int32(0)
		if e.used {
			used = 1
		}
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(used))
		name := make([]byte, 16)
		copy(name, e.name)
		copy(b[off+4:off+20], name)
		binary.LittleEndian.PutUint32(b[off+20:off+24], e.size)
		binary.LittleEndian.PutUint32(b[off+24:off+28], uint32(e.head))
		binary.LittleEndian.PutUint32(b[off+28:off+32], e.refCnt)
	}
	return b
}

func directoryFromBytes(b []byte) directory {
	var d directory
	for i := range d.entries {
		off := i * dirEntrySize
		used := binary.LittleEndian.Uint32(b[off:off+4]) != 0
		name := strings.TrimRight(string(b[off+4:off+20]), "\x00")
		size := binary.LittleEndian.Uint32(b[off+20 : off+24])
		head := int32(binary.LittleEndian.Uint32(b[off+24 : off+28]))
		d.entries[i] = dirEntry{used: used, name: name, size: size, head: head, refCnt: 0}
	}
	return d
}

func writeDirectory(d *disk.Disk, dr directory) error {
	return d.WriteBlock(dirIdx, dr.bytes())
}

func readDirectory(d *disk.Disk, _ int) (directory, error) {
	buf := make([]byte, BlockSize)
	if err := d.ReadBlock(dirIdx, buf); err != nil {
		return directory{}, err
	}
	return directoryFromBytes(buf), nil
}

// Create adds a new, empty file to the directory: one data block (its
// head), whose FAT entry is End and whose size starts at zero.
func (s *Session) Create(name string) error {
	if !s.mounted {
		return fmt.Errorf("fs_create: %w", ErrNotMounted)
	}
	if len(name) == 0 || len(name) > MaxName {
		return fmt.Errorf("fs_create(%q): %w", name, ErrInvalidName)
	}
	if _, ok := s.dir.findByName(name); ok {
		return fmt.Errorf("fs_create(%q): %w", name, ErrFileExists)
	}
	if s.dir.usedCount() >= MaxFiles {
		return fmt.Errorf("fs_create(%q): %w", name, ErrDirectoryFull)
	}
	slot, ok := s.dir.firstFreeSlot()
	if !ok {
		return fmt.Errorf("fs_create(%q): %w", name, ErrDirectoryFull)
	}

	head, err := s.fat.allocate()
	if err != nil {
		return fmt.Errorf("fs_create(%q): %w", name, err)
	}

	s.dir.entries[slot] = dirEntry{used: true, name: name, size: 0, head: head, refCnt: 0}
	log.WithFields(logrus.Fields{"name": name, "head": head}).Debug("fatvol: created file")
	return nil
}

// Delete removes a file, freeing its entire chain. It refuses files that
// are open (ref_cnt > 0), over-length names, or names that don't exist.
func (s *Session) Delete(name string) error {
	if !s.mounted {
		return fmt.Errorf("fs_delete: %w", ErrNotMounted)
	}
	if len(name) == 0 || len(name) > MaxName {
		return fmt.Errorf("fs_delete(%q): %w", name, ErrInvalidName)
	}
	slot, ok := s.dir.findByName(name)
	if !ok {
		return fmt.Errorf("fs_delete(%q): %w", name, ErrFileNotFound)
	}
	if s.dir.entries[slot].refCnt > 0 {
		return fmt.Errorf("fs_delete(%q): %w", name, ErrFileInUse)
	}

	s.fat.freeChain(s.dir.entries[slot].head)
	s.dir.entries[slot] = dirEntry{}
	log.WithField("name", name).Debug("fatvol: deleted file")
	return nil
}

// ListFiles returns the names of every used directory entry, in
// directory-slot order. spec.md §9 notes the original fs_listfiles does
// not check mounted state; this implementation does.
func (s *Session) ListFiles() ([]string, error) {
	if !s.mounted {
		return nil, fmt.Errorf("fs_listfiles: %w", ErrNotMounted)
	}
	names := make([]string, 0, MaxFiles)
	for i := range s.dir.entries {
		if s.dir.entries[i].used {
			names = append(names, s.dir.entries[i].name)
		}
	}
	return names, nil
}
