package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/ldimport"
)

const version = "0.1.0"

func newServeCmd(root *rootOptions) *cobra.Command {
	var mcpStdio bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, or the MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if mcpStdio || a.cfg.MCPStdio {
				srv := mcp.NewServer(&mcp.Implementation{Name: "kadry", Version: version}, nil)
				a.pipe.RegisterMCP(srv)
				a.svc.RegisterMCP(srv)
				a.logger.Info("kadry MCP server on stdio")
				return srv.Run(cmd.Context(), &mcp.StdioTransport{})
			}
			return serveHTTP(cmd.Context(), a)
		},
	}
	cmd.Flags().BoolVar(&mcpStdio, "mcp-stdio", false, "serve MCP tools on stdin/stdout instead of HTTP")
	return cmd
}

func serveHTTP(ctx context.Context, a *app) error {
	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           a.svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("kadry listening", "addr", a.cfg.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	a.logger.Info("kadry stopped")
	return nil
}

func newParseCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a document and print the result as JSON",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "qualifications FILE.docx",
		Short: "Extract position qualification requirements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.svc.ParseQualificationsFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}, &cobra.Command{
		Use:   "dossier FILE.docx",
		Short: "Extract a personnel dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			d, err := a.svc.ParseDossierFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	})
	return cmd
}

func newImportCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import documents into the catalog",
	}

	var unitID int64
	quals := &cobra.Command{
		Use:   "qualifications FILE.docx",
		Short: "Save qualification requirements under a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.svc.SaveQualificationsFile(cmd.Context(), unitID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	quals.Flags().Int64Var(&unitID, "unit", 0, "unit id owning the positions")
	quals.MarkFlagRequired("unit")

	var (
		live        bool
		createUsers bool
		setRank     bool
		dossierUnit int64
	)
	dossiers := &cobra.Command{
		Use:   "dossiers ARCHIVE.zip",
		Short: "Import a zip archive of dossiers (dry run unless --live)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			opts := ldimport.Options{DryRun: !live, CreateUsers: createUsers, SetRank: setRank}
			if cmd.Flags().Changed("unit") {
				opts.UnitID = &dossierUnit
			}
			out, err := a.svc.ImportDossiersFile(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	dossiers.Flags().BoolVar(&live, "live", false, "apply to the catalog (default is a dry run)")
	dossiers.Flags().BoolVar(&createUsers, "create-users", false, "create accounts for unknown emails")
	dossiers.Flags().BoolVar(&setRank, "set-rank", false, "apply the extracted rank")
	dossiers.Flags().Int64Var(&dossierUnit, "unit", 0, "unit id assigned to every imported profile")

	cmd.AddCommand(quals, dossiers)
	return cmd
}

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and optionally load reference data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if seedPath != "" {
				seed, err := catalog.LoadSeed(seedPath)
				if err != nil {
					return err
				}
				if err := a.store.ApplySeed(cmd.Context(), seed); err != nil {
					return err
				}
			}
			units, err := a.store.ListUnits(cmd.Context())
			if err != nil {
				return err
			}
			ranks, err := a.store.ListRanks(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("migrate done", "db", a.cfg.DBPath, "units", len(units), "ranks", len(ranks))
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"db_path": a.cfg.DBPath,
				"units":   len(units),
				"ranks":   len(ranks),
			})
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML seed file with ranks and units")
	return cmd
}
