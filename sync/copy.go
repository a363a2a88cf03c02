// Package sync copies files between a fatvol volume and the host
// filesystem. It generalizes the teacher's tree-shaped CopyFileSystem down
// to fatvol's flat namespace: no directories, no symlinks, no timestamps to
// preserve (spec.md's Non-goals exclude all three), just a list of named
// files to push in or pull out.
package sync

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/fatvol/fatvol/filesystem/fatvol"
)

const copyChunkSize = 32 * 1024

// excludedNames are never copied in, mirroring the teacher's exclusion of
// incidental filesystem metadata files that have no business on a volume.
var excludedNames = map[string]bool{
	".DS_Store":                 true,
	"Thumbs.db":                 true,
	"System Volume Information": true,
}

// CopyIn copies every regular file at the root of src onto the mounted
// volume s. Subdirectories are skipped and logged: fatvol has no directory
// concept to copy them into.
func CopyIn(src fs.FS, s *fatvol.Session) error {
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return fmt.Errorf("copy in: read source: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if excludedNames[name] {
			continue
		}
		if entry.IsDir() {
			logrus.WithField("name", name).Warn("sync: skipping subdirectory, fatvol has no subdirectories")
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("copy in %s: stat: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			logrus.WithField("name", name).Warn("sync: skipping non-regular file")
			continue
		}
		if err := copyFileIn(src, s, name); err != nil {
			return fmt.Errorf("copy in %s: %w", name, err)
		}
	}
	return nil
}

func copyFileIn(src fs.FS, s *fatvol.Session, name string) error {
	in, err := src.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := s.Create(name); err != nil {
		return err
	}
	fd, err := s.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(fd) }()

	buf := make([]byte, copyChunkSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := s.Write(fd, buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// CopyOut writes every file on the mounted volume s into dstDir on the host
// filesystem, creating it if necessary.
func CopyOut(s *fatvol.Session, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("copy out: %w", err)
	}
	names, err := s.ListFiles()
	if err != nil {
		return fmt.Errorf("copy out: %w", err)
	}
	for _, name := range names {
		if err := copyFileOut(s, dstDir, name); err != nil {
			return fmt.Errorf("copy out %s: %w", name, err)
		}
	}
	return nil
}

func copyFileOut(s *fatvol.Session, dstDir, name string) error {
	fd, err := s.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(fd) }()

	size, err := s.GetFileSize(fd)
	if err != nil {
		return err
	}

	out, err := os.Create(filepath.Join(dstDir, name))
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	// cap the write at the recorded size even if a future Read
	// implementation were to over-read, keeping host copies byte-exact.
	lw := NewLimitWriter(out, int64(size))

	buf := make([]byte, copyChunkSize)
	for {
		n, rerr := s.Read(fd, buf)
		if n > 0 {
			if _, werr := lw.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
