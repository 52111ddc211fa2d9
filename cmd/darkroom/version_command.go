package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			version := "devel"
			revision := ""
			if info, ok := debug.ReadBuildInfo(); ok {
				if info.Main.Version != "" && info.Main.Version != "(devel)" {
					version = info.Main.Version
				}
				for _, setting := range info.Settings {
					if setting.Key == "vcs.revision" {
						revision = setting.Value
					}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "darkroom %s\n", version)
			if detailed {
				if revision != "" {
					fmt.Fprintf(out, "revision: %s\n", revision)
				}
				fmt.Fprintf(out, "go: %s\n", runtime.Version())
				fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			}
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include build and platform details")
	return cmd
}
