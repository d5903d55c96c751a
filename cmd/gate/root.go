package gate

import (
	"github.com/spf13/cobra"

	"go.minekube.com/queue/pkg/config"
)

// Root returns the gate process's own cobra command tree: invoked with
// no subcommand the root command runs the proxy (Run), and `init`
// seeds a starter config file instead of requiring every option be
// learned from scratch.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "gate",
		Short: "Runs the queue-aware Minecraft proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run()
		},
		SilenceUsage: true,
	}

	var initPath string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Writes a starter config.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteDefault(initPath)
		},
	}
	initCmd.Flags().StringVar(&initPath, "path", "config.yml", "path to write the starter config to")
	root.AddCommand(initCmd)

	return root
}
