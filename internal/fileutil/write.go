// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is an output file written by WriteFilesAtomic.
type File struct {
	Name string
	Data []byte
}

// WriteFileAtomic writes data to a temporary file in the directory of
// fileName and renames it over fileName once the content is on disk.
func WriteFileAtomic(fileName string, data []byte, perm os.FileMode) error {
	return WriteFilesAtomic([]File{{Name: fileName, Data: data}}, perm)
}

// WriteFilesAtomic writes every file to a temporary file first and renames
// them in order only once all of them are on disk. When a rename fails the
// files already renamed are removed.
func WriteFilesAtomic(files []File, perm os.FileMode) error {
	staged := make([]string, 0, len(files))
	defer func() {
		for _, tmpName := range staged {
			os.Remove(tmpName)
		}
	}()

	for _, f := range files {
		tmpName, err := stage(f, perm)
		if err != nil {
			return err
		}
		staged = append(staged, tmpName)
	}

	for i, tmpName := range staged {
		if err := os.Rename(tmpName, files[i].Name); err != nil {
			for _, f := range files[:i] {
				os.Remove(f.Name)
			}
			return fmt.Errorf("failed to rename %s: %w", files[i].Name, err)
		}
	}
	return nil
}

func stage(f File, perm os.FileMode) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.Name), "."+filepath.Base(f.Name)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for %s: %w", f.Name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to set permissions on %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close %s: %w", f.Name, err)
	}
	return tmpName, nil
}

// WriteNewFile atomically writes data to fileName, refusing to replace an
// existing file.
func WriteNewFile(fileName string, data []byte, perm os.FileMode) error {
	if _, err := os.Stat(fileName); !os.IsNotExist(err) {
		return fmt.Errorf("file %s already exists, refusing to overwrite", fileName)
	}
	return WriteFileAtomic(fileName, data, perm)
}
