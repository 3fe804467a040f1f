//go:build !statsview

package armstats

import "io"

// RecordStep is a no-op without the statsview build tag.
func RecordStep() {}

// Launch is a no-op without the statsview build tag.
func Launch(output io.Writer) {}

// Available returns false without the statsview build tag.
func Available() bool {
	return false
}
