package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/scott-wilson/publish/cmd/publish/commands"
)

// Set with -ldflags "-X main.version=..." by release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit = buildVersion()
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildVersion falls back to the module version and VCS revision recorded by
// `go install` when no version was injected.
func buildVersion() (string, string) {
	if version != "dev" {
		return version, commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit
	}

	v, c := version, commit
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		v = mv
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			c = s.Value[:12]
		}
	}
	return v, c
}
