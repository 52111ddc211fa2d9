// Package fileutil provides file move and copy primitives for the
// organizer's rename stage.
package fileutil

import (
	"errors"
	"io"
	"os"
)

// MoveFile renames src to dst, falling back to copy-and-remove when the
// rename crosses a filesystem boundary. The fallback preserves the source
// file's mode.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	info, statErr := os.Stat(src)
	if statErr != nil {
		return statErr
	}
	if copyErr := CopyFileMode(src, dst, info.Mode().Perm()); copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	return os.Remove(src)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
