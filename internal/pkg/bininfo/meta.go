// Values in this file are injected at build time with -ldflags "-X".
// Renaming the variables breaks the release build.

package bininfo

var (
	// Version is the SemVer version of the binary.
	Version = "v0.0.0"

	// Commit is the VCS revision the binary was built from.
	Commit = "unknown"

	// BuildTime is the time at which the application was built.
	BuildTime = "1970-01-01T00:00:00Z"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
}
