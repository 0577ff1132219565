package storage

import (
	"os"
	"sync"
	"syscall"
)

// fileLock serializes writers of one record file, within this process via
// the mutex and across processes via flock on a sidecar .lock file.
type fileLock struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// lock blocks until the exclusive lock is held.
func (l *fileLock) lock() error {
	l.mu.Lock()

	f, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		l.mu.Unlock()
		return err
	}

	l.file = f
	return nil
}

// unlock releases the lock and removes the sidecar file.
func (l *fileLock) unlock() {
	if l.file == nil {
		return
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path + ".lock")

	l.file = nil
	l.mu.Unlock()
}
