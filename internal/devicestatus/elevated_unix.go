//go:build !windows

package devicestatus

import "os"

// isElevated treats euid 0 as the cross-platform stand-in for
// IsUserAnAdmin on the actual Windows build.
func isElevated() bool {
	return os.Geteuid() == 0
}
