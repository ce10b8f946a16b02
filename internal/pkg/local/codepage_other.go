//go:build !windows

package local

func consoleCodePage() uint32 {
	return codePageUTF8
}
