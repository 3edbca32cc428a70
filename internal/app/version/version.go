package version

// Default values are overridden at build time via -ldflags in the
// Dockerfile. Keep these lower-case so ldflags can set them without
// exporting internals.
var (
	buildVersion = "dev"
	builtAt      = ""
)

func BuildVersion() string {
	return buildVersion
}

func BuiltAt() string {
	return builtAt
}
