//go:build !unix

package term

import "golang.org/x/xerrors"

func readHidden(int) ([]byte, error) {
	return nil, xerrors.New("hidden input is not supported on this platform")
}

func isTerminal(int) bool {
	return false
}
