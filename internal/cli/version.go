package cli

import (
	"github.com/spf13/cobra"

	"magicyan/internal/magicyan"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("magicyan version %s (file format %s)\n", version, magicyan.FormatVersion)
		},
	}
}
