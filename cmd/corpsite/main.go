// Package main is the corpsite command: it serves the site and runs the
// maintenance tasks that need direct database access.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/corpsite"
	"github.com/eringen/corpsite/content"
	"github.com/eringen/corpsite/seed"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "corpsite",
		Short: "Bilingual corporate website and content API",
		Long: `corpsite serves a bilingual (English/Arabic) corporate website with
an admin content API. Running it without a subcommand starts the server.

Configuration is read from the YAML file given with --config, then
overridden by environment variables (SITE_URL, DATABASE_PATH, ...).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		serveCmd(&configPath),
		seedCmd(&configPath),
		exportCmd(&configPath),
		adminCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("corpsite %s\n", version)
			},
		},
	)
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := corpsite.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := corpsite.New(cfg)
	defer app.Close()
	return app.Start(ctx)
}

func seedCmd(configPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in page documents into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cs, err := openContent(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := cs.LoadDefaults(cmd.Context(), force)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d page documents\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite documents already in the database")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export-content <dir>",
		Short: "Write every page document to <dir> as JSON files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cs, err := openContent(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := cs.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("exported %d page documents to %s\n", n, args[0])
			return nil
		},
	}
}

func adminCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var email, password, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := corpsite.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			store, err := corpsite.NewStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()
			u, err := store.CreateAdminUser(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			fmt.Printf("created admin %s (id %d)\n", u.Email, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "Login email")
	create.Flags().StringVar(&password, "password", "", "Password (at least 8 characters)")
	create.Flags().StringVar(&name, "name", "Administrator", "Display name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

// openContent opens the database and a content store configured like the
// server's.
func openContent(configPath string) (*corpsite.Store, *content.Store, error) {
	cfg, err := corpsite.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := corpsite.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	cs, err := content.NewStore(store.DB(), content.WithDir(cfg.ContentDir), content.WithDefaults(seed.Defaults()))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, cs, nil
}
