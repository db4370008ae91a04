package version

import "fmt"

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// String renders the build information for `quotebot version` and startup logs.
func String() string {
	return fmt.Sprintf("quotebot %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}
