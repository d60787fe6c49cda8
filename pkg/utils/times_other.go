//go:build !windows

package utils

import "time"

// setCreationTime is a no-op: birth time cannot be written on this platform.
func setCreationTime(string, time.Time) error {
	return nil
}
