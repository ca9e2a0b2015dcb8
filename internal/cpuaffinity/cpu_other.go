//go:build !linux

package cpuaffinity

// PinThisThread is a best-effort no-op outside Linux: there is no
// portable, cgo-free way to set thread affinity from Go on other
// platforms.
func PinThisThread(cpuIndex int) error {
	return nil
}
