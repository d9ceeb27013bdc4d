// Package preflight validates filesystem preconditions before a build mutates
// anything: the model source must be readable, the output directory writable,
// and the scratch filesystem must have room for the staged copies.
package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckModelDir verifies that path exists, is a directory, and is readable.
func CheckModelDir(path string) Result {
	const name = "model directory"
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckOutputDir verifies that path exists (creating it if needed) and is
// writable.
func CheckOutputDir(path string) Result {
	const name = "output directory"
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least need
// bytes available.
func CheckFreeSpace(path string, need uint64) Result {
	const name = "free space"
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	avail := stat.Bavail * uint64(stat.Bsize)
	if avail < need {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d bytes available, need %d)", path, avail, need)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes available)", path, avail)}
}

// FirstFailure returns the first failed result, or nil when all passed.
func FirstFailure(results []Result) *Result {
	for i := range results {
		if !results[i].Passed {
			return &results[i]
		}
	}
	return nil
}
