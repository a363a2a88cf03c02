package fatvol

import (
	"encoding/binary"
	"fmt"

	"github.com/fatvol/fatvol/disk"
)

// FAT sentinels, persisted as signed 32-bit integers per spec.md §3/§6.
// Any other value n >= 0 means "successor block is n".
const (
	fatFree = int32(-1) // block unallocated
	fatEnd  = int32(-2) // block is the last in its chain
)

// fat is the in-memory file allocation table: one entry per block on the
// volume. Blocks [0, dataIdx) are reserved and never returned by allocate;
// they are initialized to fatEnd purely so that nothing ever mistakes them
// for free space (P2 — their actual value is otherwise never inspected,
// since no chain walk ever starts below dataIdx).
type fat struct {
	entries []int32
}

func newFAT() fat {
	entries := make([]int32, DiskBlocks)
	for i := range entries {
		if i < dataIdx {
			entries[i] = fatEnd
		} else {
			entries[i] = fatFree
		}
	}
	return fat{entries: entries}
}

// allocate finds the first free block via a linear scan of the data region
// and marks it as a new, single-block chain (End).
func (f *fat) allocate() (int32, error) {
	for i := int32(dataIdx); i < DiskBlocks; i++ {
		if f.entries[i] == fatFree {
			f.entries[i] = fatEnd
			log.WithField("block", i).Debug("fat: allocated block")
			return i, nil
		}
	}
	return 0, ErrNoSpace
}

// walk follows the chain rooted at head until it has consumed off bytes,
// returning the block containing byte offset off and the intra-block
// offset within that block. The caller must guarantee the chain is long
// enough (reads) or extend it on demand (writes); walk itself never
// allocates.
func (f *fat) walk(head int32, off int64) (block int32, intra int, err error) {
	block = head
	for off >= BlockSize {
		next := f.entries[block]
		if next == fatEnd {
			return 0, 0, fmt.Errorf("fat: chain rooted at %d ends before offset", head)
		}
		block = next
		off -= BlockSize
	}
	return block, int(off), nil
}

// extend allocates a new block and splices it onto the chain after tail,
// which must currently be the chain's End. It returns the new block.
func (f *fat) extend(tail int32) (int32, error) {
	if f.entries[tail] != fatEnd {
		return 0, fmt.Errorf("fat: block %d is not a chain tail", tail)
	}
	next, err := f.allocate()
	if err != nil {
		return 0, err
	}
	f.entries[tail] = next
	return next, nil
}

// truncateAfter frees every block in the chain strictly after last and
// marks last as the new End. It snapshots the successor before mutating
// any entry, so mutating last's entry never corrupts the walk (the defect
// spec.md §9 calls out in the original fs_truncate).
func (f *fat) truncateAfter(last int32) {
	next := f.entries[last]
	f.entries[last] = fatEnd
	for next != fatEnd {
		after := f.entries[next]
		f.entries[next] = fatFree
		log.WithField("block", next).Debug("fat: freed block (truncate)")
		next = after
	}
}

// freeChain frees every block in the chain rooted at head, including head
// itself. It reads next before clearing the current block (the defect
// spec.md §9 calls out in the original fs_delete).
func (f *fat) freeChain(head int32) {
	block := head
	for {
		next := f.entries[block]
		f.entries[block] = fatFree
		log.WithField("block", block).Debug("fat: freed block (delete)")
		if next == fatEnd {
			return
		}
		block = next
	}
}

// next reports the successor of block, which may be fatEnd.
func (f *fat) next(block int32) int32 {
	return f.entries[block]
}

// isEnd reports whether block is the last block in its chain.
func (f *fat) isEnd(block int32) bool {
	return f.entries[block] == fatEnd
}

// chainLength reports how many blocks the chain rooted at head occupies.
func (f *fat) chainLength(head int32) int {
	n := 0
	block := head
	for {
		n++
		next := f.entries[block]
		if next == fatEnd {
			return n
		}
		block = next
	}
}

func (f fat) bytes() []byte {
	b := make([]byte, fatLen*BlockSize)
	for i, v := range f.entries {
		binary.LittleEndian.PutUint32(b[i*fatBytesPerEntry:], uint32(v))
	}
	return b
}

func fatFromBytes(b []byte) fat {
	entries := make([]int32, DiskBlocks)
	for i := range entries {
		off := i * fatBytesPerEntry
		entries[i] = int32(binary.LittleEndian.Uint32(b[off : off+4]))
	}
	return fat{entries: entries}
}

// writeFAT writes fatLen consecutive blocks covering the FAT's entire byte
// array. The original C source wrote fat_len blocks offset by i*BLOCK_SIZE
// into a sizeof(int)-indexed array, which only ever persisted a slice of
// the table (spec.md §9) — this writes the full serialized byte slice
// across the correct block range instead.
func writeFAT(d *disk.Disk, f fat) error {
	b := f.bytes()
	for i := 0; i < fatLen; i++ {
		if err := d.WriteBlock(fatIdx+i, b[i*BlockSize:(i+1)*BlockSize]); err != nil {
			return err
		}
	}
	return nil
}

func readFAT(d *disk.Disk) (fat, error) {
	b := make([]byte, fatLen*BlockSize)
	buf := make([]byte, BlockSize)
	for i := 0; i < fatLen; i++ {
		if err := d.ReadBlock(fatIdx+i, buf); err != nil {
			return fat{}, err
		}
		copy(b[i*BlockSize:(i+1)*BlockSize], buf)
	}
	return fatFromBytes(b), nil
}
