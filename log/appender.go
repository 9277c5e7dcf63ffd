package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogAppender outputs finished log lines somewhere. Write receives one
// complete line including the trailing newline; Refresh reopens or rotates
// the destination after configuration changes.
type LogAppender interface {
	Write(line []byte)
	Refresh()
}

// ConsoleAppender writes log lines to stdout.
type ConsoleAppender struct {
	mu sync.Mutex
}

// NewConsoleAppender creates a stdout appender.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{}
}

// Write implements the LogAppender interface.
func (a *ConsoleAppender) Write(line []byte) {
	a.mu.Lock()
	_, _ = os.Stdout.Write(line)
	a.mu.Unlock()
}

// Refresh implements the LogAppender interface.
func (a *ConsoleAppender) Refresh() {}

// FileAppender writes log lines to a file, rotating it when it grows past
// the configured size. With async enabled, writes go through a bounded
// channel and a background goroutine; lines are dropped, not blocked on,
// when the channel backs up.
type FileAppender struct {
	mu      sync.Mutex
	path    string
	splitMB int
	file    *os.File
	written int64

	asyncCh chan []byte
	done    chan struct{}
}

// NewFileAppender creates a file appender from the logger configuration.
func NewFileAppender(cfg *LogCfg) *FileAppender {
	a := &FileAppender{
		path:    cfg.LogPath,
		splitMB: cfg.FileSplitMB,
	}
	if cfg.IsAsync {
		size := cfg.AsyncCacheSize
		if size <= 0 {
			size = 1024
		}
		interval := cfg.AsyncWriteMillSec
		if interval <= 0 {
			interval = 200
		}
		a.asyncCh = make(chan []byte, size)
		a.done = make(chan struct{})
		go a.drain(time.Duration(interval) * time.Millisecond)
	}
	return a
}

// Write implements the LogAppender interface.
func (a *FileAppender) Write(line []byte) {
	if a.asyncCh != nil {
		// The event buffer is recycled after Write returns; the async path
		// needs its own copy.
		cp := make([]byte, len(line))
		copy(cp, line)
		select {
		case a.asyncCh <- cp:
		default:
		}
		return
	}
	a.mu.Lock()
	a.write(line)
	a.mu.Unlock()
}

// Refresh implements the LogAppender interface: close the current file so
// the next write reopens it (after rotation or a config change).
func (a *FileAppender) Refresh() {
	a.mu.Lock()
	if a.file != nil {
		_ = a.file.Close()
		a.file = nil
	}
	a.mu.Unlock()
}

// Close flushes the async queue and closes the file.
func (a *FileAppender) Close() {
	if a.asyncCh != nil {
		close(a.done)
	}
	a.Refresh()
}

func (a *FileAppender) drain(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case line := <-a.asyncCh:
			a.mu.Lock()
			a.write(line)
			a.mu.Unlock()
		case <-ticker.C:
			// Wake up periodically so a quiet process still notices Close.
		case <-a.done:
			for {
				select {
				case line := <-a.asyncCh:
					a.mu.Lock()
					a.write(line)
					a.mu.Unlock()
				default:
					return
				}
			}
		}
	}
}

func (a *FileAppender) write(line []byte) {
	if a.file == nil {
		if err := a.open(); err != nil {
			fmt.Fprintf(os.Stderr, "log: open %s: %v\n", a.path, err)
			return
		}
	}

	n, err := a.file.Write(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: write %s: %v\n", a.path, err)
		return
	}
	a.written += int64(n)

	if a.splitMB > 0 && a.written >= int64(a.splitMB)<<20 {
		a.rotate()
	}
}

func (a *FileAppender) open() error {
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	a.file = f
	a.written = info.Size()
	return nil
}

func (a *FileAppender) rotate() {
	_ = a.file.Close()
	a.file = nil
	a.written = 0

	stamp := time.Now().Format("20060102-150405")
	rotated := fmt.Sprintf("%s.%s", a.path, stamp)
	if err := os.Rename(a.path, rotated); err != nil {
		fmt.Fprintf(os.Stderr, "log: rotate %s: %v\n", a.path, err)
	}
}
