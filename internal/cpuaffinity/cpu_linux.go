//go:build linux

// Package cpuaffinity pins the calling goroutine's OS thread to a
// specific CPU, for the benchmark harnesses that care about cache
// locality between a producer and consumer.
package cpuaffinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinThisThread locks the calling goroutine to its current OS thread
// and restricts that thread's scheduling to the given CPU index. The
// caller must not unlock the OS thread afterward for the pin to stay
// in effect for the remainder of the goroutine's life.
func PinThisThread(cpuIndex int) error {
	if cpuIndex < 0 {
		return nil
	}
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(cpuIndex)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("cpuaffinity: sched_setaffinity cpu=%d: %w", cpuIndex, err)
	}
	return nil
}
