package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapseek/snapseek/pkg/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "snapseek",
		Short:   "Visual product similarity search",
		Version: fmt.Sprintf("%s (%s, %s)", version.GetVersion(), version.GetCommitHash(), version.GetBuildDate()),
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "include source locations in logs")
	root.AddCommand(
		ServeCmd(),
		IndexCmd(),
	)
	return root
}
