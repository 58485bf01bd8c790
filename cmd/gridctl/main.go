// Package main provides gridctl, an operator CLI for the detection point graph.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridguardian-backend/internal/config"
	"gridguardian-backend/internal/di"
	"gridguardian-backend/internal/domain/graph"
	"gridguardian-backend/internal/graphsync"
	"gridguardian-backend/internal/logging"
)

var (
	configFile string
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gridctl",
	Short: "Inspect and maintain the detection point graph",
	Long:  `gridctl reads the point collection, derives the edge list, follows live updates and manages the stored graph snapshot.`,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every point and its neighbor list once",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "Fetch the points and print the derived edges",
	Args:  cobra.NoArgs,
	RunE:  runEdges,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live point updates until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Snapshot commands",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotShow,
}

var snapshotRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the graph and overwrite the stored snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotRefresh,
}

var snapshotClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotClear,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "Path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotRefreshCmd)
	snapshotCmd.AddCommand(snapshotClearCmd)

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(edgesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openReader loads configuration and builds the read-side components.
func openReader(ctx context.Context) (*di.Reader, *zap.Logger, func(), error) {
	cfg, err := config.NewLoader(configFile).Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	// keep stdout for command output
	logger, _, err := logging.New(config.Development, level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	reader, cleanup, err := di.InitializeReader(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("initialize: %w", err)
	}
	return reader, logger, func() {
		cleanup()
		_ = logger.Sync()
	}, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reader, _, done, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer done()

	points, err := reader.Fetcher.FetchGraph(ctx)
	if err != nil {
		return fmt.Errorf("fetch graph: %w", err)
	}

	if jsonOutput {
		return printJSON(points)
	}
	printPoints(points)
	return nil
}

func runEdges(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reader, _, done, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer done()

	points, err := reader.Fetcher.FetchGraph(ctx)
	if err != nil {
		return fmt.Errorf("fetch graph: %w", err)
	}
	edges := graph.NewEdgeDeriver(reader.Mode).Derive(points)

	if jsonOutput {
		return printJSON(edges)
	}
	printEdges(edges)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, logger, done, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer done()

	store := graphsync.NewPointStore(reader.Source,
		graphsync.WithLogger(logger.Named("graphsync")),
		graphsync.WithReferenceMode(reader.Mode),
		graphsync.WithListener(func(state graph.State) {
			if jsonOutput {
				if err := printJSON(state); err != nil {
					logger.Warn("Failed to print state", zap.Error(err))
				}
				return
			}
			printState(state)
		}),
	)
	if err := store.Start(ctx); err != nil {
		return err
	}
	defer store.Stop()

	<-ctx.Done()
	return nil
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reader, _, done, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer done()

	info, ok := reader.Reader.SnapshotInfo(ctx)
	if !ok {
		return fmt.Errorf("no snapshot stored")
	}

	if jsonOutput {
		return printJSON(info)
	}
	fmt.Printf("Key:        %s\n", info.Key)
	fmt.Printf("Version:    %d\n", info.Version)
	fmt.Printf("Created:    %s\n", info.CreatedAt)
	fmt.Printf("Expired:    %t\n", info.Expired)
	fmt.Printf("Points:     %d\n", info.PointCount)
	return nil
}

func runSnapshotRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reader, _, done, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer done()

	snap, err := reader.Reader.RefreshSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	if jsonOutput {
		return printJSON(snap)
	}
	fmt.Printf("Stored %d points at %s\n", len(snap.Points), snap.CreatedAt)
	return nil
}

func runSnapshotClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reader, _, done, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := reader.Reader.ClearSnapshot(ctx); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	fmt.Println("Snapshot cleared")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPoints(points []graph.Point) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAT\tLNG\tNEIGHBORS")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t%.5f\t%.5f\t%d\n", p.ID, p.Name, p.Lat, p.Lng, len(p.Neighbors))
	}
	w.Flush()
	fmt.Printf("\n%d points\n", len(points))
}

func printEdges(edges []graph.Edge) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "A\tB")
	for _, e := range edges {
		fmt.Fprintf(w, "%s\t%s\n", e.A.ID, e.B.ID)
	}
	w.Flush()
	fmt.Printf("\n%d edges\n", len(edges))
}

func printState(state graph.State) {
	switch {
	case state.Loading:
		fmt.Println("loading...")
	case state.Err != nil:
		fmt.Printf("rev %d: %d points, %d edges (error: %v)\n", state.Revision, len(state.Points), len(state.Edges), state.Err)
	default:
		fmt.Printf("rev %d: %d points, %d edges\n", state.Revision, len(state.Points), len(state.Edges))
	}
}
