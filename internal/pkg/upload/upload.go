// Package upload replicates a local file or directory tree onto a remote
// host through a Transport.
package upload

import (
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"

	"deployer-backend/internal/pkg/deployerr"
)

// DirMode is applied to every remote directory the uploader creates.
const DirMode os.FileMode = 0o755

// Transport is the remote file system primitive set an upload needs.
type Transport interface {
	Stat(remotePath string) (os.FileInfo, error)
	Mkdir(remotePath string, mode os.FileMode) error
	PutFile(localPath, remotePath string) error
}

// Progress describes one completed file.
type Progress struct {
	Uploaded int
	Total    int
	Percent  int
	File     string
	SizeKB   float64
}

func (p Progress) String() string {
	return fmt.Sprintf("[%d/%d] %d%% - ✓ %s (%.1f KB)", p.Uploaded, p.Total, p.Percent, p.File, p.SizeKB)
}

// Observer receives upload progress. Both hooks are optional.
type Observer struct {
	// OnScan is called once with the number of files found by the
	// pre-scan, before anything is written remotely.
	OnScan func(total int)
	// OnFile is called after every completed file transfer.
	OnFile func(Progress)
}

func (o Observer) scanned(total int) {
	if o.OnScan != nil {
		o.OnScan(total)
	}
}

func (o Observer) fileDone(p Progress) {
	if o.OnFile != nil {
		o.OnFile(p)
	}
}

// Percent returns round(100*done/total). An empty upload is complete.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// File copies a single local file to remotePath.
func File(t Transport, localPath, remotePath string, obs Observer) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &deployerr.ArtifactNotFoundError{Path: localPath}
	}

	obs.scanned(1)
	if err := t.PutFile(localPath, remotePath); err != nil {
		return &deployerr.TransferError{File: localPath, Err: err}
	}
	obs.fileDone(Progress{
		Uploaded: 1,
		Total:    1,
		Percent:  100,
		File:     filepath.Base(localPath),
		SizeKB:   float64(info.Size()) / 1024,
	})
	return nil
}

// Directory mirrors localDir under remoteDir. Files already transferred are
// left in place when a later file fails.
func Directory(t Transport, localDir, remoteDir string, obs Observer) error {
	total, err := CountFiles(localDir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", localDir, err)
	}
	obs.scanned(total)

	if err := EnsureDir(t, remoteDir); err != nil {
		return err
	}

	m := &mirror{t: t, obs: obs, total: total}
	return m.walk(localDir, remoteDir)
}

type mirror struct {
	t        Transport
	obs      Observer
	total    int
	uploaded int
}

func (m *mirror) walk(localDir, remoteDir string) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", localDir, err)
	}

	for _, entry := range entries {
		localPath := filepath.Join(localDir, entry.Name())
		remotePath := path.Join(remoteDir, entry.Name())

		info, err := os.Stat(localPath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", localPath, err)
		}

		if info.IsDir() {
			if err := EnsureDir(m.t, remotePath); err != nil {
				return err
			}
			if err := m.walk(localPath, remotePath); err != nil {
				return err
			}
			continue
		}

		if err := m.t.PutFile(localPath, remotePath); err != nil {
			return &deployerr.TransferError{File: localPath, Err: err}
		}

		m.uploaded++
		if m.uploaded > m.total {
			// the tree grew after the pre-scan
			m.total = m.uploaded
		}
		m.obs.fileDone(Progress{
			Uploaded: m.uploaded,
			Total:    m.total,
			Percent:  Percent(m.uploaded, m.total),
			File:     entry.Name(),
			SizeKB:   float64(info.Size()) / 1024,
		})
	}
	return nil
}

// CountFiles returns the number of non-directory entries below dir,
// following symlinks the same way the mirror walk does.
func CountFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		info, err := os.Stat(p)
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			count++
			continue
		}
		n, err := CountFiles(p)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// EnsureDir makes sure dir exists remotely. When dir cannot be created it
// climbs towards the root until a directory exists or can be created, then
// creates the missing levels on the way back down.
func EnsureDir(t Transport, dir string) error {
	dir = path.Clean(dir)

	var missing []string
	cur := dir
	for {
		if _, err := t.Stat(cur); err == nil {
			break
		}
		err := t.Mkdir(cur, DirMode)
		if err == nil {
			break
		}
		parent := path.Dir(cur)
		if parent == cur {
			return &deployerr.TransferError{File: cur, Err: fmt.Errorf("create remote directory: %w", err)}
		}
		missing = append(missing, cur)
		cur = parent
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if err := t.Mkdir(missing[i], DirMode); err != nil {
			return &deployerr.TransferError{File: missing[i], Err: fmt.Errorf("create remote directory: %w", err)}
		}
	}
	return nil
}
