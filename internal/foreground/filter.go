package foreground

import "strings"

var blockedExact = map[string]bool{
	"explorer.exe":      true,
	"systemsettings.exe": true,
	"taskmgr.exe":        true,
	"searchui.exe":       true,
	"sihost.exe":         true,
}

var blockedPrefixes = []string{
	"fontdrvhost",
	"applicationframehost",
	"shellexperiencehost",
	"startmenuexperiencehost",
}

// ShouldTrack reports whether an observed package name should be counted
// toward foreground sessions, per spec §4.G's filter rules. Callers must
// lower-case pkg before calling (Normalize does this).
func ShouldTrack(pkg string) bool {
	if pkg == "" {
		return false
	}
	if blockedExact[pkg] {
		return false
	}
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(pkg, prefix) {
			return false
		}
	}
	return true
}

// Normalize lower-cases an observed package name, as required by "accepted
// packages are reported in lower-case".
func Normalize(pkg string) string {
	return strings.ToLower(pkg)
}
