package pidfile

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueworks/consumer/errors"
)

func pidPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "worker.pid")
}

func TestAcquire_FreshPath(t *testing.T) {
	path := pidPath(t)

	f, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), f.Pid())
	assert.Equal(t, path, f.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))
}

func TestAcquire_LiveOwnerRefused(t *testing.T) {
	path := pidPath(t)
	original := []byte(strconv.Itoa(os.Getpid()) + "\n")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	f, err := Acquire(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyRunning)
	assert.Nil(t, f)

	// A refused claim leaves the file untouched.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, original, data)
}

func TestAcquire_StalePidReclaimed(t *testing.T) {
	// Run a short-lived child so we hold a pid that is guaranteed dead.
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	deadPid := cmd.Process.Pid

	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(deadPid)+"\n"), 0o644))

	f, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), f.Pid())

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))
}

func TestAcquire_GarbageContentRefused(t *testing.T) {
	// Garbage parses to pid 0, which resolves to our own process group, so
	// the file counts as owned by a live process.
	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))

	_, err := Acquire(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyRunning)
}

func TestRemove(t *testing.T) {
	path := pidPath(t)

	f, err := Acquire(path)
	require.NoError(t, err)

	require.NoError(t, f.Remove())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Removing again, or removing a nil file, is a no-op.
	assert.NoError(t, f.Remove())
	assert.NoError(t, (*File)(nil).Remove())
}
