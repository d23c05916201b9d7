// Package term реализует интерактивный ввод для утилиты администратора:
// скрытый ввод токена и подтверждение необратимых операций.
package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// Terminal читает ответы пользователя из стандартного ввода.
type Terminal struct {
	in      *bufio.Reader
	out     io.Writer
	stdinfd int
	hidden  func(fd int) ([]byte, error)
	isTTY   func(fd int) bool
}

// NewTerminal создает новый экземпляр Terminal.
func NewTerminal() *Terminal {
	return newTerminal(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
}

func newTerminal(in io.Reader, out io.Writer, fd int) *Terminal {
	return &Terminal{
		in:      bufio.NewReader(in),
		out:     out,
		stdinfd: fd,
		hidden:  readHidden,
		isTTY:   isTerminal,
	}
}

// Secret запрашивает значение без отображения вводимых символов.
// Если ввод не терминал (например, pipe), значение читается как обычная строка.
func (t *Terminal) Secret(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	if !t.isTTY(t.stdinfd) {
		return t.readLine()
	}
	b, err := t.hidden(t.stdinfd)
	fmt.Fprintln(t.out) // Новая строка после ввода
	if err != nil {
		return "", xerrors.Errorf("failed to read secret: %w", err)
	}
	value := strings.TrimSpace(string(b))
	if value == "" {
		return "", xerrors.New("empty input")
	}
	return value, nil
}

// Confirm задает вопрос да/нет. Пустой ответ означает «нет».
func (t *Terminal) Confirm(question string) (bool, error) {
	fmt.Fprintf(t.out, "%s [y/N]: ", question)
	line, err := t.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		if err == io.EOF {
			return false, nil
		}
		return false, xerrors.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "д", "да":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", xerrors.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", xerrors.New("empty input")
	}
	return value, nil
}
