// Package log provides the kernel's single diagnostic sink.
//
// There is no host process to hand a structured-logging library to, so
// this wraps log/slog the same way the teacher reaches for it directly
// at its few logging call sites (internal/hv/riscv/ccvm/vm.go,
// internal/linux/boot/loader.go in the example pack) rather than
// introducing a third-party logger.
package log

import (
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Default returns the kernel's logger.
func Default() *slog.Logger {
	return logger
}

// SetDefault installs a replacement logger, for tests that want to
// capture or silence output.
func SetDefault(l *slog.Logger) {
	logger = l
}
