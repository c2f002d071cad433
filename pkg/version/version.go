package version

// Current defines the application version.
// It defaults to "dev" and is overwritten at build time with -ldflags.
var Current = "dev"

// Commit is the source revision, injected with -ldflags.
var Commit = "none"

const AppName = "leastpriv"

// String renders the version line printed by `leastpriv version`.
func String() string {
	return AppName + " " + Current + " (" + Commit + ")"
}
