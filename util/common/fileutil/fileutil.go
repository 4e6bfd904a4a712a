package fileutil

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nitro-repo/nitro-repo/util/common/errors"
)

// SafeJoin resolves a slash separated, client supplied location below root.
// Any ".." segment is refused rather than cleaned away.
func SafeJoin(root, location string) (string, error) {
	if root == "" {
		return "", errors.NewValidationError("root", "root cannot be empty")
	}
	location = strings.ReplaceAll(location, "\\", "/")
	for _, segment := range strings.Split(location, "/") {
		if segment == ".." {
			return "", errors.NewFileError(location, "resolve", errors.ErrPathEscape)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+location), "/")
	if cleaned == "" {
		return root, nil
	}
	return filepath.Join(root, filepath.FromSlash(cleaned)), nil
}

// ReadFile reads the entire file. A missing file is reported as
// errors.ErrNotFound so callers can branch without os.IsNotExist.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileError(path, "stat", errors.ErrNotFound)
		}
		return nil, errors.NewFileError(path, "stat", err)
	}
	if info.IsDir() {
		return nil, errors.NewValidationError("path", "path is a directory, expected a file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError(path, "read", err)
	}
	return data, nil
}

// AtomicWriteFile writes data next to path and renames it into place, so
// concurrent readers observe either the old or the new content.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewFileError(dir, "create_dir", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.NewFileError(dir, "create_temp", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return errors.NewFileError(tmpName, "chmod", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.NewFileError(tmpName, "write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.NewFileError(tmpName, "sync", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewFileError(tmpName, "close", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewFileError(path, "rename", err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// CopyDir copies the tree below src into dst, creating dst as needed.
func CopyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.NewFileError(dst, "create_dir", err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.NewFileError(src, "read_dir", err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(from, to); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies a single regular file.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return errors.NewFileError(src, "open", err)
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.NewFileError(dst, "create_dir", err)
	}
	dstFile, err := os.Create(dst)
	if err != nil {
		return errors.NewFileError(dst, "create", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return errors.NewFileError(dst, "copy", err)
	}
	return nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
