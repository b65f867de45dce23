// Package cmd provides the CLI commands for research-planner.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"research-planner/adapters/catalogfile"
	"research-planner/adapters/storage"
	"research-planner/core/catalog"
	"research-planner/core/slate"
	"research-planner/core/ui"
	"research-planner/internal/config"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

// Version is the CLI version
const Version = "0.1.0"

var (
	cfgFile      string
	verbose      bool
	sessionID    string
	noColor      bool
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "research-planner",
	Short: "Plan and price research computing requests",
	Long: `research-planner helps researchers classify their data, size their
storage and compute needs, and assemble a priced request for institutional
research computing services.

Examples:
  research-planner classify --answer human-subjects=no
  research-planner calc genomics --input data_type=Exome --input sample_count=50 --add
  research-planner price hpc-gpu 250
  research-planner slate show`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.research-planner/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", storage.DefaultSession, "slate session id")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json)")

	// Add subcommands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(slateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".research-planner", "config.json")
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "research-planner version %s\n", Version)
	},
}

// writer builds the terminal writer for a command. Colors are off when
// requested or when output is not a terminal.
func writer(cmd *cobra.Command) *ui.Writer {
	out := cmd.OutOrStdout()
	plain := noColor
	if f, ok := out.(*os.File); !ok || !ui.IsTerminal(f) {
		plain = true
	}
	w := ui.NewWriter(out, plain)
	if verbose {
		w.SetVerbosity(2)
	}
	return w
}

func jsonOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Internal("failed to encode output", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// loadCatalog loads path, or the configured catalog when path is empty
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		path = config.Get().Catalog.Path
	}
	if path == "" {
		return nil, errors.Config("no catalog configured")
	}
	return catalogfile.Load(path)
}

// session is the persisted slate of the --session id
type session struct {
	id    string
	cat   *catalog.Catalog
	store storage.Store
	slate *slate.Store
}

func openSession(ctx context.Context, cat *catalog.Catalog) (*session, error) {
	if err := storage.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	store, err := storage.New(config.Get().Storage)
	if err != nil {
		return nil, err
	}
	saved, err := storage.LoadOrEmpty(ctx, store, sessionID)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := slate.NewStore(cat)
	s.Restore(*saved)
	logging.Debug("session opened",
		zap.String("session", sessionID),
		zap.Int("items", s.ItemCount()))

	return &session{id: sessionID, cat: cat, store: store, slate: s}, nil
}

func (s *session) save(ctx context.Context) error {
	snap := s.slate.Snapshot()
	return s.store.Save(ctx, s.id, &snap)
}

func (s *session) Close() error {
	return s.store.Close()
}

// institution names the exporting institution: config first, then the
// catalog meta
func institution(cat *catalog.Catalog) string {
	if name := config.Get().Institution.Name; name != "" {
		return name
	}
	return cat.Meta.Institution
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
