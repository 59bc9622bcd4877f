package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nomadatlas/mapcore/internal/db"
	"github.com/nomadatlas/mapcore/internal/scheme"
	"github.com/nomadatlas/mapcore/internal/server"
	"github.com/nomadatlas/mapcore/internal/service"
)

// Options defines all CLI flags and env vars for the atlas server.
// Flags: --host, --port, --data-dir, --web-dir
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir string `doc:"Directory for styles, tiles and the entity database" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
}

func newServer(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv := newServer(opts)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("nomad-atlas API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			srv.Start()
			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "atlas"
	cli.Root().Short = "Travel atlas map server with mode and highlight orchestration"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// import subcommand: load entity metadata from GeoJSON files
	importCmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import entity metadata from GeoJSON into the atlas database",
		Args:  cobra.MinimumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			conn, err := db.Get(db.Config{DataDir: opts.DataDir, DBName: "atlas"})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
				os.Exit(1)
			}
			defer db.Close()

			svc, err := service.NewEntityService(conn)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error initializing entity store: %v\n", err)
				os.Exit(1)
			}

			total := 0
			for _, path := range args {
				n, err := svc.ImportGeoJSON(path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", path, err)
					os.Exit(1)
				}
				fmt.Printf("  %s: %d entities\n", path, n)
				total += n
			}
			fmt.Printf("Imported %d entities\n", total)
		}),
	}
	cli.Root().AddCommand(importCmd)

	// schemes subcommand: export the compiled color expressions, for style
	// authoring and for checking what the map will actually paint
	schemesCmd := &cobra.Command{
		Use:   "schemes",
		Short: "Export the color scheme expressions as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			out := make(map[string]any)
			for _, name := range scheme.Names() {
				out[name] = scheme.MustLookup(name).Compile()
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling schemes: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
		},
	}
	cli.Root().AddCommand(schemesCmd)

	cli.Run()
}
