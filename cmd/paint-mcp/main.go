package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paint-mcp",
		Short: "MCP server for wall recoloring and paint matching",
		Long: `paint-mcp previews room photos with their walls repainted and finds
catalog paints that match a color.

Without a subcommand it runs the MCP server over stdin/stdout. Configure it
in your MCP client (e.g., Claude Desktop).

Environment variables (also read from ./.env):
  PAINT_MCP_LOG_LEVEL=debug             Log level (trace, debug, info, warn, error)
  PAINT_MCP_CATALOG_PATH=paints.yaml    YAML or JSON paint catalog
  PAINT_MCP_DATABASE_URL=postgres://... PostgreSQL catalog (wins over CATALOG_PATH)
  PAINT_MCP_MAX_IMAGE_WIDTH=1200        Working width for photos
  PAINT_MCP_TOLERANCE / _FEATHER / _OPACITY   Default blend settings

Examples:
  # Detect wall colors in a photo
  paint-mcp detect room.jpg

  # Paint the walls sage green
  paint-mcp recolor room.jpg --color "#9caf88" --out preview.jpg

  # Find paints close to a color
  paint-mcp match "#9caf88" --max-results 3`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.SetVersionTemplate(versionString())

	rootCmd.AddCommand(
		serveCmd(),
		detectCmd(),
		recolorCmd(),
		matchCmd(),
		catalogCmd(),
		versionCmd(),
	)
	return rootCmd
}

func versionString() string {
	return fmt.Sprintf("paint-mcp %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString())
		},
	}
}
