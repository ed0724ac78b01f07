package version

// Build variables set via ldflags during compilation, e.g.
// -X 'github.com/snapseek/snapseek/pkg/version.Version=v1.0.0'
var (
	// Version is the semantic version of the binary
	Version = "unknown"
	// CommitHash is the git commit the binary was built from
	CommitHash = "unknown"
	// BuildDate is the build timestamp in RFC3339 format
	BuildDate = "unknown"
)

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}

// GetVersion returns just the version string
func GetVersion() string {
	return Version
}

// GetCommitHash returns just the commit hash
func GetCommitHash() string {
	return CommitHash
}

// GetBuildDate returns just the build date
func GetBuildDate() string {
	return BuildDate
}
