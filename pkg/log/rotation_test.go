// Log file rotation tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFileWriterBasic(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "merge.log")

	writer, err := NewRotatingFileWriter(RotationConfig{Filename: logFile})
	if err != nil {
		t.Fatalf("failed to create rotating writer: %v", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if string(content) != "hello\n" {
		t.Errorf("expected 'hello\\n', got %q", content)
	}
}

func TestRotatingFileWriterRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "merge.log")

	writer, err := NewRotatingFileWriter(RotationConfig{Filename: logFile, MaxBackups: 2})
	if err != nil {
		t.Fatalf("failed to create rotating writer: %v", err)
	}
	defer writer.Close()

	for i := 0; i < 3; i++ {
		writer.currentSize = writer.maxBytes
		if _, err := writer.Write([]byte("line\n")); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	for _, name := range []string{"merge.log", "merge.log.1", "merge.log.2"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "merge.log.3")); !os.IsNotExist(err) {
		t.Errorf("expected merge.log.3 to be pruned, got err=%v", err)
	}
}

func TestRotatingFileWriterCompress(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "merge.log")

	writer, err := NewRotatingFileWriter(RotationConfig{Filename: logFile, Compress: true})
	if err != nil {
		t.Fatalf("failed to create rotating writer: %v", err)
	}
	defer writer.Close()

	writer.Write([]byte("first\n"))
	writer.currentSize = writer.maxBytes
	writer.Write([]byte("second\n"))

	if _, err := os.Stat(filepath.Join(dir, "merge.log.1.gz")); err != nil {
		t.Errorf("expected compressed backup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "merge.log.1")); !os.IsNotExist(err) {
		t.Errorf("expected uncompressed backup to be removed, got err=%v", err)
	}
}

func TestNewFileLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")

	logger, writer, err := NewFileLogger("test", RotationConfig{Filename: logFile})
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}
	defer writer.Close()

	logger.Info("test message")

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "test message") {
		t.Errorf("log file missing expected content: %s", content)
	}
	if strings.Contains(string(content), "\x1b[") {
		t.Errorf("log file should not contain color codes: %q", content)
	}
}

func TestRotationConfigDefaults(t *testing.T) {
	writer, err := NewRotatingFileWriter(RotationConfig{Filename: filepath.Join(t.TempDir(), "x.log")})
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer writer.Close()

	if writer.maxBytes != 10*1024*1024 {
		t.Errorf("expected 10MB limit, got %d", writer.maxBytes)
	}
	if writer.cfg.MaxBackups != 3 {
		t.Errorf("expected 3 backups, got %d", writer.cfg.MaxBackups)
	}
}

func TestRotationConfigEmptyFilename(t *testing.T) {
	if _, err := NewRotatingFileWriter(RotationConfig{}); err == nil {
		t.Error("expected error for empty filename")
	}
}
