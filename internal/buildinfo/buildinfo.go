// Package buildinfo carries the version stamp of the running binary. The
// values are empty in local builds and set by the release image with
//
//	go build -ldflags "-X github.com/garyellow/line-foodfinder/internal/buildinfo.Version=v1.2.0 \
//	  -X github.com/garyellow/line-foodfinder/internal/buildinfo.Commit=$(git rev-parse HEAD) \
//	  -X github.com/garyellow/line-foodfinder/internal/buildinfo.BuildDate=$(date -u +%FT%TZ)"
package buildinfo

var (
	// Version is the release tag, reported by /readyz.
	Version = ""
	// Commit is the full git SHA.
	Commit = ""
	// BuildDate is an RFC 3339 UTC timestamp.
	BuildDate = ""
)

// Release names the build for error reports: the tag when stamped, else the
// short commit, else "dev".
func Release() string {
	switch {
	case Version != "":
		return Version
	case len(Commit) > 7:
		return Commit[:7]
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}
