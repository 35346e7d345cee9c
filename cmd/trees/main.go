package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-trees/internal/config"
	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/logger"
	"github.com/joeblew999/plat-trees/internal/server"
)

// Options defines all CLI flags and env vars for the tree viewer.
// Flags: --host, --port, --data-dir, --web-dir, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, SERVICE_CONFIG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for dataset files" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
	Config  string `doc:"Dataset configuration file (default <data-dir>/trees.yaml)"`
}

func (o *Options) configPath() string {
	if o.Config != "" {
		return o.Config
	}
	return filepath.Join(o.DataDir, "trees.yaml")
}

func newServer(ctx context.Context, opts *Options) (*server.Server, error) {
	cfg, err := config.Load(opts.configPath())
	if err != nil {
		return nil, err
	}
	return server.New(ctx, server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
		Trees:   cfg,
		Log:     logger.Setup(),
	})
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(context.Background(), opts)
			exitOn(err)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-trees viewer starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Config:  %s\n", opts.configPath())
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				exitOn(fmt.Errorf("server: %w", err))
			}
		})

		hooks.OnStop(func() {
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "trees"
	cli.Root().Short = "Urban tree map viewer"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(cmd.Context(), opts)
			exitOn(err)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			exitOn(err)
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// catalog subcommand: print the species catalog of the configured datasets
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the species catalog",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			code, _ := cmd.Flags().GetString("lang")
			lang, err := i18n.Parse(code)
			exitOn(err)

			srv, err := newServer(cmd.Context(), opts)
			exitOn(err)
			defer srv.Close()

			for _, e := range srv.Hub().Index().Entries(lang) {
				fmt.Printf("%-8s %s\n", e.ID, e.DisplayName)
			}
		}),
	}
	catalogCmd.Flags().StringP("lang", "l", string(i18n.Default), "Display language (en, fr)")
	cli.Root().AddCommand(catalogCmd)

	cli.Run()
}
