// Package main provides the gqlite CLI entry point: a one-shot query
// runner, an interactive Cypher shell, and a fixture seeder, all backed
// by an embedded BadgerDB-powered graph database.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gqlite/gqlite/pkg/config"
	"github.com/gqlite/gqlite/pkg/cypher"
	"github.com/gqlite/gqlite/pkg/graph"
	"github.com/gqlite/gqlite/pkg/pool"
	"github.com/gqlite/gqlite/pkg/storage"
	"github.com/gqlite/gqlite/pkg/testutil"
)

var version = "0.1.0"

func main() {
	var (
		dataDir  string
		inMemory bool
		cfgFile  string
	)

	rootCmd := &cobra.Command{
		Use:     "gqlite",
		Short:   "gqlite - an embedded property-graph database with a restricted Cypher dialect",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "database directory (overrides config file)")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "run against an in-memory database instead of --data-dir")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a gqlite.yaml config file")

	loadConfig := func() (config.Config, error) {
		cfg := config.Default()
		if cfgFile != "" {
			var err error
			cfg, err = config.LoadYAML(cfgFile)
			if err != nil {
				return config.Config{}, err
			}
		}
		cfg = config.LoadFromEnv(cfg)
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if inMemory {
			cfg.InMemory = true
		}
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
		pool.Configure(pool.Config{Enabled: true, MaxSize: 1000})
		graph.SetPrefetchWorkers(cfg.PrefetchWorkers)
		cypher.SetVarLengthCeiling(cfg.VarLengthCeiling)
		return cfg, nil
	}

	var asJSON bool
	execCmd := &cobra.Command{
		Use:   "exec <query>",
		Short: "Run a single Cypher query and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, closeFn, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return runQuery(cmd.OutOrStdout(), g, args[0], asJSON)
		},
	}
	execCmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON instead of a table")
	rootCmd.AddCommand(execCmd)

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive Cypher shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, closeFn, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return runShell(cmd.InOrStdin(), cmd.OutOrStdout())(g)
		},
	}
	rootCmd.AddCommand(shellCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the Mark/Alex/Felipe sample fixture into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, closeFn, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := testutil.SeedFixture(g); err != nil {
				return fmt.Errorf("seeding fixture: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "fixture loaded")
			return nil
		},
	}
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openGraph opens the storage engine named by cfg and wraps it in a Graph.
func openGraph(cfg config.Config) (*graph.Graph, func(), error) {
	var (
		engine storage.Engine
		err    error
	)
	if cfg.InMemory {
		engine = storage.NewMemoryEngine()
	} else {
		var be *storage.BadgerEngine
		be, err = storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
			DataDir:      cfg.DataDir,
			SyncWrites:   cfg.SyncWrites,
			BlockCacheMB: cfg.BlockCacheMB,
			IndexCacheMB: cfg.IndexCacheMB,
		})
		engine = be
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening database at %q: %w", cfg.DataDir, err)
	}
	g := graph.New(engine)
	return g, func() { _ = engine.Close() }, nil
}

// runQuery parses and executes a single query, printing its result to w.
func runQuery(w io.Writer, g *graph.Graph, query string, asJSON bool) error {
	q, err := cypher.Parse(query)
	if err != nil {
		return err
	}
	res, err := cypher.Execute(g, q)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, res)
	}
	printTable(w, res)
	return nil
}

// runShell returns a REPL loop reading queries from r, one per line, until
// "exit", "quit", or EOF.
func runShell(r io.Reader, w io.Writer) func(g *graph.Graph) error {
	return func(g *graph.Graph) error {
		scanner := bufio.NewScanner(r)
		fmt.Fprintln(w, "gqlite shell. Type 'exit' or 'quit' to leave.")
		for {
			fmt.Fprint(w, "gqlite> ")
			if !scanner.Scan() {
				fmt.Fprintln(w)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}
			if err := runQuery(w, g, line, false); err != nil {
				fmt.Fprintln(w, "error:", err)
			}
		}
	}
}

// printTable renders a Result as a pipe-separated table, the CLI's default
// rendering for human-driven shell sessions.
func printTable(w io.Writer, res cypher.Result) {
	if len(res.Columns) == 0 {
		fmt.Fprintln(w, "(no columns)")
		return
	}
	fmt.Fprintln(w, strings.Join(res.Columns, " | "))
	if len(res.Rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}
	cells := pool.GetStringSlice()
	defer pool.PutStringSlice(cells)
	for _, row := range res.Rows {
		cells = cells[:0]
		for _, c := range row.Cells {
			if c.Path != nil {
				cells = append(cells, c.Path.String())
			} else {
				cells = append(cells, c.Scalar)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, " | "))
	}
	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
}

// printJSON renders a Result as {"columns":[...],"rows":[[...]]}.
func printJSON(w io.Writer, res cypher.Result) error {
	type jsonResult struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	out := jsonResult{Columns: res.Columns, Rows: make([][]string, len(res.Rows))}
	for i, row := range res.Rows {
		vals := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			if c.Path != nil {
				vals[j] = c.Path.String()
			} else {
				vals[j] = c.Scalar
			}
		}
		out.Rows[i] = vals
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
