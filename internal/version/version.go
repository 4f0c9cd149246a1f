package version

// Version is the autotrader release, set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-autotrader/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

// GetVersion returns the running autotrader version.
func GetVersion() string {
	return Version
}
