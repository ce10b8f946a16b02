package ssh

import (
	"os"

	"github.com/pkg/sftp"
)

type sftpTransport struct {
	c *sftp.Client
}

func (t *sftpTransport) Stat(remotePath string) (os.FileInfo, error) {
	return t.c.Stat(remotePath)
}

func (t *sftpTransport) Mkdir(remotePath string, mode os.FileMode) error {
	if err := t.c.Mkdir(remotePath); err != nil {
		return err
	}
	return t.c.Chmod(remotePath, mode)
}

func (t *sftpTransport) PutFile(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := t.c.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
