package logger

import "github.com/mattn/go-isatty"

// isTerminal checks if the file descriptor is an interactive terminal
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
