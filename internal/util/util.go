// Package util provides common utility functions.
package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandUser expands '~' to the user's home directory
func ExpandUser(path string) string {
	usr, _ := user.Current()
	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

// AbsPath returns absolute path after expanding '~' to user's home dir
// Use everywhere in place of filepath.Abs()
func AbsPath(path string) (string, error) {
	return filepath.Abs(ExpandUser(path))
}

// FileExists checks if a regular file exists at the given path. An error is
// returned when the path refers to something other than a regular file.
func FileExists(path string) (bool, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !fileInfo.Mode().IsRegular() {
		return false, fmt.Errorf("%s not a file", path)
	}
	return true, nil
}

// DirectoryExists checks if a directory exists at the given path. An error is
// returned when the path refers to something other than a directory.
func DirectoryExists(path string) (bool, error) {
	var fileInfo fs.FileInfo
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !fileInfo.Mode().IsDir() {
		return false, fmt.Errorf("%s not a directory", path)
	}
	return true, nil
}
