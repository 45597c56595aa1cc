package version

// Set at build time with -ldflags "-X github.com/charlie0129/battoverlay/pkg/version.Version=...".
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
