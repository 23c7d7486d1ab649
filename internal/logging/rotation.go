package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc"
)

// Rotation controls size-based rotation of the log file.
type Rotation struct {
	// MaxSizeMB is the size at which the file is rolled over. 0 disables rotation.
	MaxSizeMB int
	// MaxBackups is how many rolled-over files are kept.
	MaxBackups int
	// Compress gzips rolled-over files.
	Compress bool
}

// RotatingFile is an append-only log file that rolls over to numbered
// backups once a write would take it past the configured size. Backup 1 is
// always the newest. It is safe for concurrent use.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	compress bool

	file *os.File
	size int64

	// compressing tracks background gzip jobs so Close can wait for them.
	compressing conc.WaitGroup
}

// OpenRotatingFile opens (or creates) path for appending.
func OpenRotatingFile(path string, rotation Rotation) (*RotatingFile, error) {
	rf := &RotatingFile{
		path:     path,
		maxBytes: int64(rotation.MaxSizeMB) * 1024 * 1024,
		backups:  rotation.MaxBackups,
		compress: rotation.Compress,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// open must be called with mu held.
func (rf *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(rf.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	rf.file = file
	rf.size = info.Size()
	return nil
}

// Write appends p, rolling the file over first if p would not fit.
// A failed rollover is reported on stderr and the write goes to the
// current file.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}

	if rf.maxBytes > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxBytes {
		if err := rf.rollover(); err != nil {
			fmt.Fprintf(os.Stderr, "polycephaly: log rotation failed: %v\n", err)
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// rollover must be called with mu held.
func (rf *RotatingFile) rollover() error {
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rf.file = nil

	rf.shiftBackups()

	newest := BackupPath(rf.path, 1)
	if rf.backups > 0 {
		if err := os.Rename(rf.path, newest); err != nil {
			if openErr := rf.open(); openErr != nil {
				return fmt.Errorf("failed to rename log file and reopen: %w", openErr)
			}
			return fmt.Errorf("failed to rename log file: %w", err)
		}
		if rf.compress {
			rf.compressing.Go(func() { compressFile(newest) })
		}
	} else {
		_ = os.Remove(rf.path)
	}

	return rf.open()
}

// shiftBackups renames backup i to i+1 and drops the oldest.
func (rf *RotatingFile) shiftBackups() {
	if rf.backups <= 0 {
		return
	}

	oldest := BackupPath(rf.path, rf.backups)
	_ = os.Remove(oldest)
	_ = os.Remove(oldest + ".gz")

	for i := rf.backups - 1; i >= 1; i-- {
		from, to := BackupPath(rf.path, i), BackupPath(rf.path, i+1)
		if _, err := os.Stat(from + ".gz"); err == nil {
			_ = os.Rename(from+".gz", to+".gz")
		} else if _, err := os.Stat(from); err == nil {
			_ = os.Rename(from, to)
		}
	}
}

// BackupPath returns the path of backup n of the log file at path.
func BackupPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// compressFile replaces path with path.gz. The original is kept on failure.
func compressFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polycephaly: failed to open %s for compression: %v\n", path, err)
		return
	}
	defer func() { _ = src.Close() }()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polycephaly: failed to create %s: %v\n", gzPath, err)
		return
	}

	zw := gzip.NewWriter(dst)
	_, copyErr := io.Copy(zw, src)
	closeErr := zw.Close()
	fileErr := dst.Close()
	if err := firstErr(copyErr, closeErr, fileErr); err != nil {
		_ = os.Remove(gzPath)
		fmt.Fprintf(os.Stderr, "polycephaly: failed to compress %s: %v\n", path, err)
		return
	}

	_ = os.Remove(path)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes the current file to disk.
func (rf *RotatingFile) Sync() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	return rf.file.Sync()
}

// Close waits for pending compression, then syncs and closes the file.
// Closing twice is a no-op.
func (rf *RotatingFile) Close() error {
	rf.compressing.Wait()

	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	if err := rf.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rf.file = nil
	return nil
}

// Size returns the size of the current file in bytes.
func (rf *RotatingFile) Size() int64 {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.size
}

// Path returns the path of the current file.
func (rf *RotatingFile) Path() string {
	return rf.path
}
