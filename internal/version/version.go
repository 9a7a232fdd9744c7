// Package version carries build metadata injected through ldflags.
package version

import "fmt"

// Set with -ldflags "-X github.com/MeKo-Tech/cardscan/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("cardscan %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

// UserAgent is sent with catalog requests.
func UserAgent() string {
	return "cardscan/" + Version
}
