// Package version carries build information stamped at link time.
//
// Release builds inject real values with:
//
//	go build -ldflags "\
//	  -X github.com/Andreysim/Chat/internal/version.Version=v1.0.0 \
//	  -X github.com/Andreysim/Chat/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/Andreysim/Chat/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	// Version is the release version of the binary.
	Version = "dev"

	// Commit is the short git commit hash the binary was built from.
	Commit = "none"

	// BuildDate is the UTC build timestamp in RFC 3339 format.
	BuildDate = "unknown"
)
