// Package pidfile enforces at-most-one live worker per PID-file path.
//
// A crashed worker leaves its file behind, so presence alone proves nothing:
// the recorded process is checked for liveness, and an abandoned file is
// reclaimed by overwriting it.
package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/queueworks/consumer/errors"
)

// File is an acquired PID file.
type File struct {
	path string
	pid  int
}

// Acquire claims path for the current process.
//
// If no file exists the current pid is written and the claim succeeds. If a
// file exists and its recorded process is still alive, Acquire fails with a
// WorkerError wrapping ErrAlreadyRunning and leaves the file untouched. If
// the recorded process is gone the file is treated as abandoned and
// overwritten.
func Acquire(path string) (*File, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Unparseable content degrades to pid 0, which the liveness
		// query resolves to the caller's own process group: the claim
		// is refused rather than silently stolen.
		pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
		if alive(pid) {
			return nil, errors.NewWorkerError("use_pidfile", errors.ErrAlreadyRunning)
		}
	case !os.IsNotExist(err):
		return nil, errors.NewWorkerError("use_pidfile",
			fmt.Errorf("read %s: %w", path, err))
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return nil, errors.NewWorkerError("use_pidfile",
			fmt.Errorf("write %s: %w", path, err))
	}

	return &File{path: path, pid: pid}, nil
}

// alive reports whether a process group exists for pid. Only a definite
// "no such process" marks the file abandoned.
func alive(pid int) bool {
	_, err := syscall.Getpgid(pid)
	return err != syscall.ESRCH
}

// Pid returns the recorded process id.
func (f *File) Pid() int {
	return f.pid
}

// Path returns the claimed path.
func (f *File) Path() string {
	return f.path
}

// Remove deletes the PID file. Removing a file that is already gone, or
// calling Remove on a nil File, is not an error.
func (f *File) Remove() error {
	if f == nil {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.NewWorkerError("remove_pidfile", err)
	}
	return nil
}
