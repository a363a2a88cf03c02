package fatvol

import (
	"fmt"
	"io"
)

// Read transfers up to len(buf) bytes from fd's current offset, clamped to
// the file's size, and advances the offset by the number of bytes actually
// transferred. It returns io.EOF once the offset reaches end-of-file,
// matching io.Reader's convention.
func (s *Session) Read(fd int, buf []byte) (int, error) {
	if err := s.checkFD(fd); err != nil {
		return 0, fmt.Errorf("fs_read: %w", err)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	f, err := s.fileForFD(fd)
	if err != nil {
		return 0, fmt.Errorf("fs_read: %w", err)
	}
	desc := &s.descriptors[fd]

	remaining := int64(f.size) - desc.offset
	if remaining <= 0 {
		return 0, io.EOF
	}
	n := int64(len(buf))
	if n > remaining {
		n = remaining
	}

	block, intra, err := s.fat.walk(f.head, desc.offset)
	if err != nil {
		return 0, fmt.Errorf("fs_read: %w", err)
	}

	var total int64
	blockBuf := make([]byte, BlockSize)
	for total < n {
		if err := s.d.ReadBlock(int(block), blockBuf); err != nil {
			desc.offset += total
			return int(total), fmt.Errorf("fs_read: %w", err)
		}
		toCopy := int64(BlockSize - intra)
		if toCopy > n-total {
			toCopy = n - total
		}
		copy(buf[total:total+toCopy], blockBuf[intra:int64(intra)+toCopy])
		total += toCopy
		intra = 0
		if total < n {
			block = s.fat.next(block)
		}
	}

	desc.offset += total
	var retErr error
	if desc.offset >= int64(f.size) {
		retErr = io.EOF
	}
	return int(total), retErr
}

// Write transfers len(buf) bytes to fd's current offset, clamped to
// MaxFileSize, auto-extending the file's chain through the FAT as needed
// and advancing the offset by the number of bytes actually written. If the
// new offset exceeds the file's size, the size is updated.
//
// Each block touched is read before being overwritten (read-modify-write),
// so partial first/last blocks never lose neighboring bytes — see
// SPEC_FULL.md's rationale for always doing this, even on fully-overwritten
// interior blocks.
func (s *Session) Write(fd int, buf []byte) (int, error) {
	if err := s.checkFD(fd); err != nil {
		return 0, fmt.Errorf("fs_write: %w", err)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	f, err := s.fileForFD(fd)
	if err != nil {
		return 0, fmt.Errorf("fs_write: %w", err)
	}
	desc := &s.descriptors[fd]

	remaining := int64(len(buf))
	if desc.offset+remaining > MaxFileSize {
		remaining = MaxFileSize - desc.offset
	}
	if remaining <= 0 {
		return 0, nil
	}

	block := f.head
	off := desc.offset
	for off >= BlockSize {
		if s.fat.isEnd(block) {
			next, err := s.fat.extend(block)
			if err != nil {
				return 0, fmt.Errorf("fs_write: %w", err)
			}
			block = next
		} else {
			block = s.fat.next(block)
		}
		off -= BlockSize
	}
	intra := int(off)

	var written int64
	blockBuf := make([]byte, BlockSize)
	for written < remaining {
		if err := s.d.ReadBlock(int(block), blockBuf); err != nil {
			s.advanceAfterWrite(f, desc, written)
			return int(written), fmt.Errorf("fs_write: %w", err)
		}
		toWrite := int64(BlockSize - intra)
		if toWrite > remaining-written {
			toWrite = remaining - written
		}
		copy(blockBuf[intra:int64(intra)+toWrite], buf[written:written+toWrite])
		if err := s.d.WriteBlock(int(block), blockBuf); err != nil {
			s.advanceAfterWrite(f, desc, written)
			return int(written), fmt.Errorf("fs_write: %w", err)
		}
		written += toWrite
		intra = 0

		if written < remaining {
			if s.fat.isEnd(block) {
				next, err := s.fat.extend(block)
				if err != nil {
					s.advanceAfterWrite(f, desc, written)
					return int(written), fmt.Errorf("fs_write: %w", err)
				}
				block = next
			} else {
				block = s.fat.next(block)
			}
		}
	}

	s.advanceAfterWrite(f, desc, written)
	return int(written), nil
}

func (s *Session) advanceAfterWrite(f *dirEntry, desc *descriptor, written int64) {
	desc.offset += written
	if desc.offset > int64(f.size) {
		f.size = uint32(desc.offset)
	}
}

// Truncate shrinks fd's file to length, freeing every block past the one
// containing its last byte. It never grows a file — use Write to do that.
func (s *Session) Truncate(fd int, length int64) error {
	if err := s.checkFD(fd); err != nil {
		return fmt.Errorf("fs_truncate: %w", err)
	}
	if length < 0 || length > MaxFileSize {
		return fmt.Errorf("fs_truncate(%d): %w", length, ErrInvalidLength)
	}
	f, err := s.fileForFD(fd)
	if err != nil {
		return fmt.Errorf("fs_truncate: %w", err)
	}
	if length > int64(f.size) {
		return fmt.Errorf("fs_truncate(%d): cannot grow a file: %w", length, ErrInvalidLength)
	}
	if length == int64(f.size) {
		return nil
	}

	desc := &s.descriptors[fd]
	if desc.offset > length {
		desc.offset = length
	}

	var last int32
	if length == 0 {
		last = f.head
	} else {
		last, _, err = s.fat.walk(f.head, length-1)
		if err != nil {
			return fmt.Errorf("fs_truncate: %w", err)
		}
	}
	s.fat.truncateAfter(last)
	f.size = uint32(length)
	return nil
}
