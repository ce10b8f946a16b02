//go:build !windows

package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"

	"deployer-backend/internal/pkg/deployerr"
)

func collect() (*[]string, func(string)) {
	var lines []string
	return &lines, func(s string) { lines = append(lines, s) }
}

func TestExecuteStreamsStdout(t *testing.T) {
	lines, onOutput := collect()
	err := New().Execute(context.Background(), "echo one; echo two", t.TempDir(), onOutput)

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, *lines)
}

func TestExecuteUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))

	lines, onOutput := collect()
	err := New().Execute(context.Background(), "ls", dir, onOutput)

	require.NoError(t, err)
	assert.Contains(t, *lines, "marker.txt")
}

func TestExecuteInheritsEnvironment(t *testing.T) {
	t.Setenv("DEPLOYER_RUNNER_TEST", "inherited")

	lines, onOutput := collect()
	err := New().Execute(context.Background(), "echo $DEPLOYER_RUNNER_TEST", t.TempDir(), onOutput)

	require.NoError(t, err)
	assert.Equal(t, []string{"inherited"}, *lines)
}

func TestExecuteNonZeroExit(t *testing.T) {
	lines, onOutput := collect()
	err := New().Execute(context.Background(), "echo out; echo bad >&2; exit 3", t.TempDir(), onOutput)

	var cmdErr *deployerr.LocalCommandError
	require.True(t, errors.As(err, &cmdErr), "got %T", err)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "bad\n", cmdErr.Stderr)
	assert.Contains(t, cmdErr.Error(), "code 3")
	assert.Contains(t, *lines, "out")
	assert.Contains(t, *lines, "[STDERR] bad")
}

func TestExecuteStderrOnSuccessIsNotFailure(t *testing.T) {
	lines, onOutput := collect()
	err := New().Execute(context.Background(), "echo warning >&2", t.TempDir(), onOutput)

	require.NoError(t, err)
	assert.Equal(t, []string{"[STDERR] warning"}, *lines)
}

func TestExecuteLaunchFailure(t *testing.T) {
	r := New(WithShell("/nonexistent/shell", "-c"))
	err := r.Execute(context.Background(), "true", t.TempDir(), nil)

	var launchErr *deployerr.LaunchError
	require.True(t, errors.As(err, &launchErr), "got %T", err)
	assert.Equal(t, "true", launchErr.Command)
}

func TestExecuteMissingDirectoryIsLaunchFailure(t *testing.T) {
	err := New().Execute(context.Background(), "true", filepath.Join(t.TempDir(), "missing"), nil)

	var launchErr *deployerr.LaunchError
	assert.True(t, errors.As(err, &launchErr), "got %T", err)
}

func TestExecuteDecodesConsoleEncoding(t *testing.T) {
	lines, onOutput := collect()
	r := New(WithEncoding(simplifiedchinese.GBK))

	// "你好" encoded as GBK
	err := r.Execute(context.Background(), `printf '\304\343\272\303\n'`, t.TempDir(), onOutput)

	require.NoError(t, err)
	assert.Equal(t, []string{"你好"}, *lines)
}

func TestExecuteFlushesTrailingLine(t *testing.T) {
	lines, onOutput := collect()
	err := New().Execute(context.Background(), "printf 'no newline'", t.TempDir(), onOutput)

	require.NoError(t, err)
	assert.Equal(t, []string{"no newline"}, *lines)
}

func TestExecuteHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Execute(ctx, "sleep 5", t.TempDir(), nil)
	assert.Error(t, err)
}

func TestEncodingForCodePage(t *testing.T) {
	tests := []struct {
		cp   uint32
		want encoding.Encoding
	}{
		{936, simplifiedchinese.GBK},
		{54936, simplifiedchinese.GB18030},
		{950, traditionalchinese.Big5},
		{932, japanese.ShiftJIS},
		{1252, charmap.Windows1252},
		{866, charmap.CodePage866},
		{65001, nil},
		{12345, nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodingForCodePage(tt.cp), "code page %d", tt.cp)
	}
}

func TestConsoleEncodingIsUTF8OffWindows(t *testing.T) {
	assert.Nil(t, ConsoleEncoding())
}
