// Package version provides the build version information for the cascadedp binary.
package version

// Version is the release version, injected via ldflags at build time.
var Version = "dev"

// Commit is the git commit hash, injected via ldflags at build time.
var Commit = "none"

// Date is the build date, injected via ldflags at build time.
var Date = "unknown"

// String renders a single-line version summary for the version command.
func String() string {
	return "cascadedp " + Version + " (" + Commit + ", built " + Date + ")"
}
