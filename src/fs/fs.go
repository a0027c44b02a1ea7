// Package fs provides various filesystem helpers.
package fs

import (
	"bytes"
	"os"
	"path"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DirPermissions are the default permission bits we apply to directories.
const DirPermissions = os.ModeDir | 0775

// existsCacheSize is the number of paths we remember the existence of.
const existsCacheSize = 4096

var existsCache *lru.Cache[string, bool]

func init() {
	c, err := lru.New[string, bool](existsCacheSize)
	if err != nil {
		panic(err)
	}
	existsCache = c
}

// EnsureDir ensures that the directory of the given file has been created.
func EnsureDir(filename string) error {
	return os.MkdirAll(path.Dir(filename), DirPermissions)
}

// PathExists returns true if the given path exists, as a file or a directory.
// Results are cached, so it should only be used for files that we don't write ourselves
// (ie. sources in the repo).
func PathExists(filename string) bool {
	if exists, present := existsCache.Get(filename); present {
		return exists
	}
	_, err := os.Lstat(filename)
	existsCache.Add(filename, err == nil)
	return err == nil
}

// FileExists returns true if the given path exists and is a file. It's not cached.
func FileExists(filename string) bool {
	info, err := os.Lstat(filename)
	return err == nil && !info.IsDir()
}

// WriteFile writes the given contents to the file named 'to', with an attempt to perform
// a write & rename to avoid chaos if anything goes wrong partway.
func WriteFile(to string, contents []byte, mode os.FileMode) error {
	dir, file := path.Split(to)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return err
	}
	tempFile, err := os.CreateTemp(dir, file)
	if err != nil {
		return err
	}
	if _, err := tempFile.Write(contents); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0664
	}
	if err := os.Chmod(tempFile.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tempFile.Name(), to)
}

// WriteFileIfChanged is like WriteFile but leaves the file alone if it already has the given
// contents, so its modification time doesn't change. It returns true if it wrote the file.
func WriteFileIfChanged(to string, contents []byte, mode os.FileMode) (bool, error) {
	if existing, err := os.ReadFile(to); err == nil && bytes.Equal(existing, contents) {
		return false, nil
	}
	return true, WriteFile(to, contents, mode)
}
