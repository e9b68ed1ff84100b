package db

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"sntrack/config"
)

// Lock takes an exclusive advisory lock on path, creating the file if
// needed. The returned func releases the lock and closes the file.
func Lock(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return func() error {
		defer f.Close()
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}, nil
}

// LockPath returns the lock file guarding appends to a sqlite database, or
// "" when the driver does its own locking.
func LockPath(driver, dsn string) string {
	if driver != config.DriverSQLite && driver != "" {
		return ""
	}
	if dsn == "" || strings.HasPrefix(dsn, ":") || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	return dsn + ".lock"
}
