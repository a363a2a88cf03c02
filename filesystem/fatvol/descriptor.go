package fatvol

import "fmt"

// descriptor is an open-file handle: a weak reference to a directory entry
// by its head block, plus a byte offset. Meaningful only while the owning
// Session is mounted — Unmount mass-invalidates every descriptor.
type descriptor struct {
	used   bool
	file   int32 // head of the referenced file, the stable key per spec.md §9
	offset int64
}

func (s *Session) firstFreeDescriptor() (int, bool) {
	for i := range s.descriptors {
		if !s.descriptors[i].used {
			return i, true
		}
	}
	return -1, false
}

// checkFD validates that fd names an in-use descriptor of a mounted
// session. spec.md §9 flags the original's off-by-one (fildes > MAX_FILDES)
// as a defect; the bound here is the corrected fd >= MaxFDs.
func (s *Session) checkFD(fd int) error {
	if !s.mounted {
		return ErrNotMounted
	}
	if fd < 0 || fd >= MaxFDs {
		return ErrInvalidDescriptor
	}
	if !s.descriptors[fd].used {
		return ErrInvalidDescriptor
	}
	return nil
}

// fileForFD returns the directory entry a descriptor refers to. It exists
// only for descriptors that passed checkFD, so the entry is always found.
func (s *Session) fileForFD(fd int) (*dirEntry, error) {
	slot, ok := s.dir.findByHead(s.descriptors[fd].file)
	if !ok {
		return nil, ErrFileNotFound
	}
	return &s.dir.entries[slot], nil
}

// Open claims the lowest-indexed free descriptor for the named file and
// binds it to that file's head block, incrementing the file's ref_cnt.
func (s *Session) Open(name string) (int, error) {
	if !s.mounted {
		return -1, fmt.Errorf("fs_open: %w", ErrNotMounted)
	}
	if s.dir.usedCount() == 0 {
		return -1, fmt.Errorf("fs_open(%q): %w", name, ErrFileNotFound)
	}
	slot, ok := s.dir.findByName(name)
	if !ok {
		return -1, fmt.Errorf("fs_open(%q): %w", name, ErrFileNotFound)
	}
	fd, ok := s.firstFreeDescriptor()
	if !ok {
		return -1, fmt.Errorf("fs_open(%q): %w", name, ErrDescriptorsFull)
	}

	s.descriptors[fd] = descriptor{used: true, file: s.dir.entries[slot].head, offset: 0}
	s.dir.entries[slot].refCnt++
	return fd, nil
}

// Close releases a descriptor and decrements its file's ref_cnt. Multiple
// descriptors may refer to the same file independently; closing one does
// not disturb the others. Double-close is an error and does not
// double-decrement ref_cnt.
func (s *Session) Close(fd int) error {
	if err := s.checkFD(fd); err != nil {
		return fmt.Errorf("fs_close: %w", err)
	}
	if slot, ok := s.dir.findByHead(s.descriptors[fd].file); ok && s.dir.entries[slot].refCnt > 0 {
		s.dir.entries[slot].refCnt--
	}
	s.descriptors[fd] = descriptor{}
	return nil
}

// GetFileSize returns the current size of the file referenced by fd.
func (s *Session) GetFileSize(fd int) (int, error) {
	if err := s.checkFD(fd); err != nil {
		return -1, fmt.Errorf("fs_get_filesize: %w", err)
	}
	f, err := s.fileForFD(fd)
	if err != nil {
		return -1, fmt.Errorf("fs_get_filesize: %w", err)
	}
	return int(f.size), nil
}

// Lseek sets fd's offset, which must land within [0, size]. Seeking past
// end-of-file is rejected — grow the file with Write (which auto-extends)
// first; Truncate only shrinks.
func (s *Session) Lseek(fd int, offset int64) (int64, error) {
	if err := s.checkFD(fd); err != nil {
		return -1, fmt.Errorf("fs_lseek: %w", err)
	}
	f, err := s.fileForFD(fd)
	if err != nil {
		return -1, fmt.Errorf("fs_lseek: %w", err)
	}
	if offset < 0 || offset > int64(f.size) {
		return -1, fmt.Errorf("fs_lseek(%d): %w", offset, ErrInvalidOffset)
	}
	s.descriptors[fd].offset = offset
	return offset, nil
}
