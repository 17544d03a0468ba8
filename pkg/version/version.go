// Package version holds build metadata injected with -ldflags.
package version

import "fmt"

// Build metadata, set at link time:
//
//	go build -ldflags "-X github.com/Sumatoshi-tech/gumsitter/pkg/version.Version=v1.2.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the one-line version banner.
func String() string {
	return fmt.Sprintf("gumsitter %s (commit: %s, built: %s)", Version, Commit, Date)
}
