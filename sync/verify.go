package sync

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatvol/fatvol/filesystem/fatvol"
	"github.com/fatvol/fatvol/util"
)

// CompareWithDir verifies that every file on the mounted volume s has
// byte-identical content to the like-named file in dir, and that dir has no
// extra files fatvol doesn't know about (names in excludedNames, which
// CopyIn never copies, are ignored). It is the round-trip check for
// CopyIn/CopyOut.
func CompareWithDir(s *fatvol.Session, dir string) error {
	names, err := s.ListFiles()
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	onVolume := make(map[string]bool, len(names))
	for _, name := range names {
		onVolume[name] = true
		if err := compareOneFile(s, dir, name); err != nil {
			return fmt.Errorf("compare %s: %w", name, err)
		}
	}

	hostEntries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("compare: read %s: %w", dir, err)
	}
	for _, e := range hostEntries {
		if !onVolume[e.Name()] && !excludedNames[e.Name()] {
			return fmt.Errorf("compare: extra file %q present on host but not on volume", e.Name())
		}
	}
	return nil
}

func compareOneFile(s *fatvol.Session, dir, name string) error {
	fd, err := s.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(fd) }()

	hf, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer func() { _ = hf.Close() }()

	bufA := make([]byte, copyChunkSize)
	bufB := make([]byte, copyChunkSize)
	offset := 0
	for {
		na, ea := s.Read(fd, bufA)
		nb, eb := hf.Read(bufB)

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			_, dump := util.DumpByteSlicesWithDiffs(bufA[:na], bufB[:nb], 16, true, true, false)
			return fmt.Errorf("content differs at chunk offset %d:\n%s", offset, dump)
		}
		offset += na

		volumeDone := ea == io.EOF
		hostDone := eb == io.EOF
		if volumeDone && hostDone {
			return nil
		}
		if ea != nil && !volumeDone {
			return ea
		}
		if eb != nil && !hostDone {
			return eb
		}
		// The volume reports io.EOF together with its last bytes; an
		// *os.File reports it on the following call, with no bytes.
		if volumeDone && !hostDone {
			if n, err := hf.Read(bufB[:1]); n == 0 && err == io.EOF {
				return nil
			}
		}
		if volumeDone != hostDone {
			return fmt.Errorf("size mismatch: one side ended before the other at offset %d", offset)
		}
	}
}

// LimitedWriter writes to W but limits the total amount of data written to N
// bytes. Each call to Write updates N to reflect the amount remaining.
type LimitedWriter struct {
	W io.Writer
	N int64
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.N <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err = l.W.Write(p)
	l.N -= int64(n)
	return n, err
}

// NewLimitWriter creates a new LimitedWriter.
func NewLimitWriter(w io.Writer, n int64) io.Writer {
	return &LimitedWriter{W: w, N: n}
}
