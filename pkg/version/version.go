// Package version carries build metadata stamped in via -ldflags.
package version

// Set at build time with:
//
//	-ldflags "-X .../pkg/version.Version=v1.2.3 -X .../pkg/version.Commit=abc -X .../pkg/version.Date=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
