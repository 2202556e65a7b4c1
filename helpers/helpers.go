// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package helpers contains small file-I/O helpers shared across the
// recovery pipeline's command-line entry points, allowing "-" to mean
// stdin/stdout and centralizing the refuse-to-overwrite check the Disk
// Image Builder's host-I/O error kind depends on.
package helpers

import (
	"io"
	"os"

	"github.com/mtwomey/a2gcr/errs"
)

// FileContentsOrStdIn returns the contents of a file, unless the file is
// "-", in which case it reads from stdin.
func FileContentsOrStdIn(s string) ([]byte, error) {
	if s == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(s)
}

// WriteOutput writes contents to filename, unless filename is "-" (stdout).
// Unless force is set, an existing file is refused with a FileExists error
// rather than overwritten.
func WriteOutput(filename string, contents []byte, force bool) error {
	if filename == "-" {
		_, err := os.Stdout.Write(contents)
		return err
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return errs.FileExistsf("helpers: refusing to overwrite existing file %q without force", filename)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	return os.WriteFile(filename, contents, 0644)
}
