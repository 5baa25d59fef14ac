package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileAppender writes entries as JSON lines to a file, rotating it when
// it grows past the size limit.
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
	level       Level
}

// FileAppenderConfig configures a FileAppender.
type FileAppenderConfig struct {
	FilePath   string
	MaxSizeMB  int64 // rotation threshold, default 100
	MaxBackups int   // rotated files kept, default 5
	Level      Level
}

// NewFileAppender opens (or creates) the audit file.
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	maxSize := config.MaxSizeMB
	if maxSize == 0 {
		maxSize = 100
	}
	maxBackups := config.MaxBackups
	if maxBackups == 0 {
		maxBackups = 5
	}

	return &FileAppender{
		file:        file,
		filePath:    config.FilePath,
		maxSize:     maxSize * 1024 * 1024,
		maxBackups:  maxBackups,
		currentSize: fileInfo.Size(),
		level:       config.Level,
	}, nil
}

// Append writes one entry as a JSON line.
func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	data, err := entry.FilterByLevel(fa.level).ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')

	if fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	fa.currentSize += int64(n)
	return nil
}

// rotate shifts audit.log -> audit.log.1 -> audit.log.2 and reopens.
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}

	for i := fa.maxBackups - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", fa.filePath, i)
		newPath := fmt.Sprintf("%s.%d", fa.filePath, i+1)

		if _, err := os.Stat(oldPath); err == nil {
			if i+1 > fa.maxBackups {
				os.Remove(newPath)
			}
			os.Rename(oldPath, newPath)
		}
	}

	if err := os.Rename(fa.filePath, fa.filePath+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(fa.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	fa.file = file
	fa.currentSize = 0
	return nil
}

// Close closes the file.
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file != nil {
		return fa.file.Close()
	}
	return nil
}

// Flush syncs the file to disk.
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file != nil {
		return fa.file.Sync()
	}
	return nil
}
