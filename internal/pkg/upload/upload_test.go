package upload

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deployer-backend/internal/pkg/deployerr"
)

type fakeInfo struct{ name string }

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() os.FileMode  { return os.ModeDir | DirMode }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return true }
func (f fakeInfo) Sys() any           { return nil }

// memTransport is an in-memory remote file system whose Mkdir fails when
// the parent is missing, like SFTP does.
type memTransport struct {
	dirs   map[string]os.FileMode
	files  map[string]string
	ops    []string
	failOn string
}

func newMemTransport(dirs ...string) *memTransport {
	m := &memTransport{
		dirs:  map[string]os.FileMode{"/": DirMode},
		files: map[string]string{},
	}
	for _, d := range dirs {
		m.dirs[d] = DirMode
	}
	return m
}

func (m *memTransport) Stat(p string) (os.FileInfo, error) {
	m.ops = append(m.ops, "stat "+p)
	if _, ok := m.dirs[p]; ok {
		return fakeInfo{name: path.Base(p)}, nil
	}
	return nil, os.ErrNotExist
}

func (m *memTransport) Mkdir(p string, mode os.FileMode) error {
	m.ops = append(m.ops, "mkdir "+p)
	if _, ok := m.dirs[path.Dir(p)]; !ok {
		return fmt.Errorf("no such file: %s", path.Dir(p))
	}
	m.dirs[p] = mode
	return nil
}

func (m *memTransport) PutFile(localPath, remotePath string) error {
	m.ops = append(m.ops, "put "+remotePath)
	if m.failOn != "" && strings.HasSuffix(remotePath, m.failOn) {
		return errors.New("connection reset")
	}
	if _, ok := m.dirs[path.Dir(remotePath)]; !ok {
		return fmt.Errorf("no such directory: %s", path.Dir(remotePath))
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.files[remotePath] = string(data)
	return nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestDirectoryFlatIntoMissingRoot(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	remote := newMemTransport("/srv")

	var scanned int
	var events []Progress
	err := Directory(remote, local, "/srv/app", Observer{
		OnScan: func(total int) { scanned = total },
		OnFile: func(p Progress) { events = append(events, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, scanned)
	require.Len(t, events, 3)
	assert.Equal(t, []int{33, 67, 100}, []int{events[0].Percent, events[1].Percent, events[2].Percent})
	for i, p := range events {
		assert.Equal(t, i+1, p.Uploaded)
		assert.Equal(t, 3, p.Total)
	}
	assert.Equal(t, "[1/3] 33% - ✓ a.txt (0.0 KB)", events[0].String())

	assert.Equal(t, []string{
		"stat /srv/app",
		"mkdir /srv/app",
		"put /srv/app/a.txt",
		"put /srv/app/b.txt",
		"put /srv/app/c.txt",
	}, remote.ops)
	assert.Equal(t, DirMode, remote.dirs["/srv/app"])
	assert.Equal(t, "b", remote.files["/srv/app/b.txt"])
}

func TestDirectoryNested(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{
		"index.html":       "<html>",
		"assets/app.js":    "js",
		"assets/img/x.png": "png",
	})
	remote := newMemTransport()

	var percents []int
	err := Directory(remote, local, "/var/www/site", Observer{
		OnFile: func(p Progress) { percents = append(percents, p.Percent) },
	})
	require.NoError(t, err)

	assert.Equal(t, []int{33, 67, 100}, percents)
	assert.Contains(t, remote.dirs, "/var")
	assert.Contains(t, remote.dirs, "/var/www")
	assert.Contains(t, remote.dirs, "/var/www/site/assets/img")
	assert.Equal(t, "png", remote.files["/var/www/site/assets/img/x.png"])
}

func TestDirectoryEmpty(t *testing.T) {
	remote := newMemTransport("/srv")

	scanned := -1
	fileEvents := 0
	err := Directory(remote, t.TempDir(), "/srv/empty", Observer{
		OnScan: func(total int) { scanned = total },
		OnFile: func(Progress) { fileEvents++ },
	})
	require.NoError(t, err)

	assert.Equal(t, 0, scanned)
	assert.Zero(t, fileEvents)
	assert.Contains(t, remote.dirs, "/srv/empty")
	assert.Equal(t, 100, Percent(0, 0))
}

func TestDirectoryTransferFailureAborts(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	remote := newMemTransport("/srv")
	remote.failOn = "b.txt"

	var uploaded []string
	err := Directory(remote, local, "/srv", Observer{
		OnFile: func(p Progress) { uploaded = append(uploaded, p.File) },
	})

	var transferErr *deployerr.TransferError
	require.True(t, errors.As(err, &transferErr), "got %T", err)
	assert.Equal(t, filepath.Join(local, "b.txt"), transferErr.File)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, []string{"a.txt"}, uploaded)
	assert.Contains(t, remote.files, "/srv/a.txt", "earlier uploads stay in place")
	assert.NotContains(t, remote.files, "/srv/c.txt")
}

func TestDirectoryScanHappensBeforeRemoteWrites(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{"a.txt": "a"})
	remote := newMemTransport()

	var opsAtScan int
	err := Directory(remote, local, "/srv", Observer{
		OnScan: func(int) { opsAtScan = len(remote.ops) },
	})
	require.NoError(t, err)
	assert.Zero(t, opsAtScan)
}

func TestFileUpload(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{"app.jar": strings.Repeat("x", 2048)})
	remote := newMemTransport("/opt")

	var got Progress
	err := File(remote, filepath.Join(local, "app.jar"), "/opt/app.jar", Observer{
		OnFile: func(p Progress) { got = p },
	})
	require.NoError(t, err)

	assert.Equal(t, Progress{Uploaded: 1, Total: 1, Percent: 100, File: "app.jar", SizeKB: 2}, got)
	assert.Len(t, remote.files["/opt/app.jar"], 2048)
}

func TestFileMissing(t *testing.T) {
	remote := newMemTransport()
	err := File(remote, filepath.Join(t.TempDir(), "nope"), "/nope", Observer{})

	var notFound *deployerr.ArtifactNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Empty(t, remote.ops)
}

func TestEnsureDirWalksUpThenDown(t *testing.T) {
	remote := newMemTransport("/a")

	require.NoError(t, EnsureDir(remote, "/a/b/c/d"))

	assert.Equal(t, []string{
		"stat /a/b/c/d",
		"mkdir /a/b/c/d",
		"stat /a/b/c",
		"mkdir /a/b/c",
		"stat /a/b",
		"mkdir /a/b",
		"mkdir /a/b/c",
		"mkdir /a/b/c/d",
	}, remote.ops)
	for _, d := range []string{"/a/b", "/a/b/c", "/a/b/c/d"} {
		assert.Equal(t, DirMode, remote.dirs[d], d)
	}
}

func TestEnsureDirExisting(t *testing.T) {
	remote := newMemTransport("/srv")

	require.NoError(t, EnsureDir(remote, "/srv/"))
	assert.Equal(t, []string{"stat /srv"}, remote.ops)
}

type brokenTransport struct{ memTransport }

func (b *brokenTransport) Mkdir(string, os.FileMode) error { return errors.New("permission denied") }

func TestEnsureDirGivesUpAtRoot(t *testing.T) {
	remote := &brokenTransport{memTransport: *newMemTransport()}
	delete(remote.dirs, "/")

	err := EnsureDir(remote, "/x/y")

	var transferErr *deployerr.TransferError
	require.True(t, errors.As(err, &transferErr))
	assert.Equal(t, "/", transferErr.File)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 0, 100},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
		{0, 5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.done, tt.total), "%d/%d", tt.done, tt.total)
	}
}

func TestCountFiles(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{"a": "", "d/b": "", "d/e/c": ""})
	require.NoError(t, os.MkdirAll(filepath.Join(local, "empty"), 0o755))

	n, err := CountFiles(local)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
