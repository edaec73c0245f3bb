package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var (
	buildVersion string
	shortVersion bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, meta := resolveVersion(buildVersion)
		out := cmd.OutOrStdout()
		if shortVersion {
			_, err := fmt.Fprintln(out, v)
			return err
		}
		if meta != "" {
			_, err := fmt.Fprintf(out, "qbplan %s (%s)\n", v, meta)
			return err
		}
		_, err := fmt.Fprintf(out, "qbplan %s\n", v)
		return err
	},
}

func displayVersion(version string) string {
	buildVersion = version
	v, _ := resolveVersion(version)
	return v
}

func resolveVersion(version string) (string, string) {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}

	var commit, buildTime string
	var dirty bool
	if info, ok := debug.ReadBuildInfo(); ok {
		if (v == "dev" || v == "(devel)") &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" &&
			!strings.HasPrefix(info.Main.Version, "v0.0.0-") {
			v = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			case "vcs.modified":
				dirty = setting.Value == "true"
			}
		}
	}

	var details []string
	if commit != "" {
		short := commit[:min(12, len(commit))]
		if dirty {
			short += "*"
		}
		details = append(details, "commit "+short)
	} else if dirty {
		details = append(details, "modified workspace")
	}
	if buildTime != "" {
		details = append(details, "built "+buildTime)
	}

	return v, strings.Join(details, ", ")
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print only the version number")
}
