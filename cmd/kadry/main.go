// Command kadry parses personnel documents and imports them into the
// catalog, over HTTP, MCP or the command line.
//
//	kadry serve [--mcp-stdio]
//	kadry parse qualifications FILE.docx
//	kadry parse dossier FILE.docx
//	kadry import qualifications --unit ID FILE.docx
//	kadry import dossiers [--live] [--create-users] [--set-rank] [--unit ID] ARCHIVE.zip
//	kadry migrate [--seed seed.yaml]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "kadry",
		Short:        "Personnel document parsing and import",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "kadry.yaml", "YAML config file (optional)")

	cmd.AddCommand(
		newServeCmd(opts),
		newParseCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// load reads the config, installs the JSON logger and opens the app. Logs go
// to stderr so stdout stays clean for command output.
func (o *rootOptions) load(cmd *cobra.Command) (*app, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return openApp(cmd.Context(), cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
