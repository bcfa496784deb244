package version

// version is overridden at build time with
// -ldflags "-X github.com/cbodonnell/econempire/pkg/version.version=v1.2.3"
var version = "dev"

// Get returns the build version of the binary.
func Get() string {
	return version
}
