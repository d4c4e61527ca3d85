// Log file rotation for the dualstrusion merger
//
// The merge service can run for a long time; its log file is rotated by
// size into numbered backups (merge.log.1, merge.log.2, ...), optionally
// gzipped.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// Filename is the path to the log file.
	Filename string

	// MaxSize is the maximum size in megabytes before rotation.
	// Default is 10 MB.
	MaxSize int

	// MaxBackups is the number of rotated files to keep. Default is 3.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool
}

// RotatingFileWriter implements io.Writer with size-based rotation.
type RotatingFileWriter struct {
	cfg         RotationConfig
	maxBytes    int64
	currentSize int64
	file        *os.File
}

// NewRotatingFileWriter opens (or creates) the log file in append mode.
func NewRotatingFileWriter(cfg RotationConfig) (*RotatingFileWriter, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	w := &RotatingFileWriter{cfg: cfg, maxBytes: int64(cfg.MaxSize) * 1024 * 1024}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.cfg.Filename), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(w.cfg.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.currentSize = info.Size()
	return nil
}

// Write implements io.Writer. Callers serialize writes (the Logger holds
// its sink lock while writing).
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	if w.currentSize > 0 && w.currentSize+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

func (w *RotatingFileWriter) backupName(i int) string {
	name := fmt.Sprintf("%s.%d", w.cfg.Filename, i)
	if w.cfg.Compress {
		name += ".gz"
	}
	return name
}

// rotate shifts file.N-1 to file.N, dropping the oldest, then moves the
// live file to file.1.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close current file: %w", err)
	}

	os.Remove(w.backupName(w.cfg.MaxBackups))
	for i := w.cfg.MaxBackups - 1; i >= 1; i-- {
		os.Rename(w.backupName(i), w.backupName(i+1))
	}

	first := fmt.Sprintf("%s.%d", w.cfg.Filename, 1)
	if err := os.Rename(w.cfg.Filename, first); err != nil {
		w.open()
		return fmt.Errorf("rename log file: %w", err)
	}
	if w.cfg.Compress {
		if err := gzipFile(first); err != nil {
			return err
		}
	}
	return w.open()
}

func gzipFile(name string) error {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(name + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(name + ".gz")
		return fmt.Errorf("compress %s: %w", name, err)
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}

// Close closes the underlying file.
func (w *RotatingFileWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// NewFileLogger creates a logger that writes to a rotating file.
func NewFileLogger(prefix string, cfg RotationConfig) (*Logger, *RotatingFileWriter, error) {
	writer, err := NewRotatingFileWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger := New(prefix)
	logger.SetWriter(writer)
	return logger, writer, nil
}
