package common

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/bobmcallan/vire-recon/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo identifies the running recon binary. It is reported by the
// /api/version endpoint and stamped on the startup banner.
type BuildInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// CurrentBuild returns the build identity after ldflags and any .version file
// have been applied. A missing commit falls back to the vcs revision the Go
// toolchain embeds.
func CurrentBuild() BuildInfo {
	b := BuildInfo{Version: Version, Build: Build, Commit: GitCommit}
	if b.Commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			b.Commit = rev
		}
	}
	return b
}

func (b BuildInfo) String() string {
	return b.Version + " (build: " + b.Build + ", commit: " + b.Commit + ")"
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return ""
}

// LoadVersionFile fills build fields still at their defaults from the
// .version file in dir. An empty dir means the executable's directory.
// A missing file is not an error.
func LoadVersionFile(dir string) error {
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil
		}
		dir = filepath.Dir(exe)
	}
	f, err := os.Open(filepath.Join(dir, ".version"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	fields, err := parseVersionFile(f)
	if err != nil {
		return err
	}
	fillDefault(&Version, "dev", fields["version"])
	fillDefault(&Build, "unknown", fields["build"])
	fillDefault(&GitCommit, "unknown", fields["commit"])
	return nil
}

// parseVersionFile reads "key: value" lines, skipping blanks and # comments.
func parseVersionFile(r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return fields, scanner.Err()
}

func fillDefault(field *string, def, val string) {
	if *field == def && val != "" {
		*field = val
	}
}
