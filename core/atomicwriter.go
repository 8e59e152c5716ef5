package core

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLock represents a file lock for concurrent access control
type FileLock struct {
	file   *os.File
	path   string
	locked bool
	mu     sync.Mutex
}

// AtomicWriteConfig controls atomic writing behavior
type AtomicWriteConfig struct {
	UseFsync       bool          // Force fsync for durability
	LockTimeout    time.Duration // Max time to wait for file lock
	TempSuffix     string        // Suffix for temporary files
	BackupOriginal bool          // Create backup before writing
}

// DefaultAtomicConfig provides sensible defaults. Backups are off because
// staged originals already live in the session database.
func DefaultAtomicConfig() AtomicWriteConfig {
	return AtomicWriteConfig{
		UseFsync:       false,
		LockTimeout:    5 * time.Second,
		TempSuffix:     ".graft.tmp",
		BackupOriginal: false,
	}
}

// AtomicWriter handles atomic file operations with locking
type AtomicWriter struct {
	config AtomicWriteConfig
	locks  map[string]*FileLock
	mu     sync.RWMutex
}

// NewAtomicWriter creates a new atomic writer
func NewAtomicWriter(config AtomicWriteConfig) *AtomicWriter {
	if config.TempSuffix == "" {
		config.TempSuffix = ".graft.tmp"
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = 5 * time.Second
	}
	return &AtomicWriter{
		config: config,
		locks:  make(map[string]*FileLock),
	}
}

// WriteFile writes content via a temp file and rename, guarded by a lock
// file against concurrent writers.
func (aw *AtomicWriter) WriteFile(path, content string) error {
	if err := aw.acquireLock(path); err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", path, err)
	}
	defer aw.releaseLock(path)

	// Preserve the original file's permissions
	originalInfo, err := os.Stat(path)
	var fileMode os.FileMode = 0o644
	if err == nil {
		fileMode = originalInfo.Mode()
	}

	if aw.config.BackupOriginal && err == nil {
		if err := aw.createBackup(path); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	tempPath := path + aw.config.TempSuffix
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tempFile.WriteString(content)
	if err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write content: %w", err)
	}

	if aw.config.UseFsync {
		if err := tempFile.Sync(); err != nil {
			tempFile.Close()
			os.Remove(tempPath)
			return fmt.Errorf("failed to sync: %w", err)
		}
	}

	tempFile.Close()

	// Atomic rename (the critical atomic operation)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to atomic rename: %w", err)
	}

	return nil
}

// acquireLock gets an exclusive file lock
func (aw *AtomicWriter) acquireLock(path string) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if _, exists := aw.locks[path]; exists {
		return nil // Already locked by this writer
	}

	lockPath := path + ".lock"

	deadline := time.Now().Add(aw.config.LockTimeout)
	for time.Now().Before(deadline) {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			lock := &FileLock{
				file:   lockFile,
				path:   lockPath,
				locked: true,
			}
			aw.locks[path] = lock

			// Write PID to lock file for staleness checks
			fmt.Fprintf(lockFile, "%d\n", os.Getpid())
			lockFile.Sync()

			return nil
		}

		if os.IsExist(err) {
			// Lock held elsewhere; reclaim it if the owner is dead
			if aw.isLockStale(lockPath) {
				os.Remove(lockPath)
				continue
			}

			time.Sleep(100 * time.Millisecond)
			continue
		}

		return fmt.Errorf("failed to create lock file: %w", err)
	}

	return fmt.Errorf("timeout waiting for lock on %s", path)
}

// releaseLock releases the file lock
func (aw *AtomicWriter) releaseLock(path string) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.releaseLockLocked(path)
}

// releaseLockLocked releases a lock with aw.mu already held.
func (aw *AtomicWriter) releaseLockLocked(path string) error {
	lock, exists := aw.locks[path]
	if !exists {
		return nil // Already released
	}

	lock.mu.Lock()
	defer lock.mu.Unlock()

	if lock.locked {
		lock.file.Close()
		os.Remove(lock.path)
		lock.locked = false
	}

	delete(aw.locks, path)
	return nil
}

// isLockStale checks if a lock file is from a dead process (cross-platform)
func (aw *AtomicWriter) isLockStale(lockPath string) bool {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return true // Can't read, assume stale
	}

	var pid int
	if _, err := fmt.Sscanf(string(content), "%d", &pid); err != nil {
		return true // Invalid format, assume stale
	}

	return !isProcessAlive(pid)
}

// createBackup writes a timestamped copy next to the original
func (aw *AtomicWriter) createBackup(originalPath string) error {
	content, err := os.ReadFile(originalPath)
	if err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s.bak.%s", originalPath, timestamp)

	return os.WriteFile(backupPath, content, 0o644)
}

// Cleanup removes all locks (call on shutdown)
func (aw *AtomicWriter) Cleanup() {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	for path := range aw.locks {
		aw.releaseLockLocked(path)
	}
}
