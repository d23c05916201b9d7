//go:build unix

package term

import "golang.org/x/term"

func readHidden(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}
