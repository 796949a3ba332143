package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = SemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// SemVer is the current version of the indexer.
	// It's the Semantic Version of the software.
	SemVer = "0.4.0"

	// SchemaVersion is the identifier of the latest schema migration.
	SchemaVersion = "0003_project_summary"
)
