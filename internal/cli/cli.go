package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"paratranz-sync/internal/cache"
	"paratranz-sync/internal/config"
	"paratranz-sync/internal/langdoc"
	"paratranz-sync/internal/nested"
	"paratranz-sync/internal/paratranz"
	"paratranz-sync/internal/pipeline"
	"paratranz-sync/internal/quest"
	"paratranz-sync/internal/snbt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "paratranz-sync",
		Short: "Download ParaTranz translations into a Minecraft modpack",
		Long: `Downloads translated entries from a ParaTranz project, restores keys truncated by
ParaTranz, orders them like the local source-language files, and writes the
target-language JSON files plus the FTB Quests SNBT language file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(config.Load().Level())
		},
	}

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(filesCmd())
	rootCmd.AddCommand(renderCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch every localization unit and write translated files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			offline, _ := cmd.Flags().GetBool("offline")
			return runSync(offline)
		},
	}

	cmd.Flags().Bool("offline", false, "Read entries from the PostgreSQL cache instead of ParaTranz")

	return cmd
}

func filesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List project files and whether each is a localization unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles()
		},
	}
}

func renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <quest-json> [output]",
		Short: "Render an FTB Quests JSON language file as SNBT",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			return runRender(args[0], output)
		},
	}
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// initCache connects the entry cache. Without DATABASE_URL the cache lives in
// memory only and the returned pool is nil.
func initCache(ctx context.Context, cfg *config.Config) (*cache.EntryCache, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return cache.NewEntryCache(nil, cfg.ProjectID), nil, nil
	}

	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	entryCache := cache.NewEntryCache(pgPool, cfg.ProjectID)
	if err := entryCache.EnsureSchema(ctx); err != nil {
		pgPool.Close()
		return nil, nil, err
	}

	return entryCache, pgPool, nil
}

func newClient(cfg *config.Config) *paratranz.Client {
	return paratranz.NewClient(cfg.BaseURL, cfg.ProjectID, cfg.APIToken)
}

// runSync handles the `sync` command.
func runSync(offline bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	if offline {
		if err := cfg.ValidateOffline(); err != nil {
			return err
		}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	entryCache, pgPool, err := initCache(ctx, cfg)
	if err != nil {
		return err
	}
	if pgPool != nil {
		defer pgPool.Close()
	}

	var source pipeline.Source
	if offline {
		if pgPool == nil {
			return fmt.Errorf("offline mode requires DATABASE_URL")
		}
		if err := entryCache.Preload(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to preload cache")
		}
		source = entryCache
	} else {
		source = pipeline.NewCachingSource(newClient(cfg), entryCache)
	}

	loader, err := langdoc.NewLoader(cfg.SourceCacheSize)
	if err != nil {
		return err
	}

	log.Info().
		Str("project", cfg.ProjectID).
		Bool("offline", offline).
		Ints("fallback_stages", policy.Stages()).
		Msg("Starting synchronization")

	syncer := pipeline.NewSyncer(source, loader, pipeline.Options{
		Layout:        cfg.Layout(),
		Policy:        policy,
		QuestSNBTPath: cfg.QuestSNBTPath,
		Workers:       cfg.WorkerCount,
	})

	summary, err := syncer.Run(ctx)
	if err != nil {
		return err
	}

	var repaired, dropped int
	for _, u := range summary.Units {
		repaired += len(u.Report.Repaired)
		dropped += len(u.Report.Dropped)
	}
	if summary.CacheErr != nil {
		log.Warn().Err(summary.CacheErr).Msg("Some responses were not cached")
	}

	log.Info().
		Int("units", len(summary.Units)).
		Int("repaired_keys", repaired).
		Int("dropped_keys", dropped).
		Str("output", cfg.OutputDir).
		Msg("Sync complete")

	return nil
}

// runFiles handles the `files` command.
func runFiles() error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := newClient(cfg).ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	layout := cfg.Layout()
	selected := make(map[int]bool)
	for _, u := range layout.Select(files) {
		selected[u.File.ID] = true
	}

	for _, f := range files {
		mark := " "
		if selected[f.ID] {
			mark = "*"
		}
		fmt.Printf("%s %8d  %s\n", mark, f.ID, f.Name)
	}

	log.Info().Int("files", len(files)).Int("units", len(selected)).Msg("Listed project files")
	return nil
}

// runRender handles the `render` command. Without output the SNBT text is
// written to stdout.
func runRender(input, output string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	doc, err := langdoc.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}

	text, err := snbt.Marshal(nested.Clone(quest.Aggregate(doc)))
	if err != nil {
		return fmt.Errorf("render %s: %w", input, err)
	}

	if output == "" {
		_, err := fmt.Fprint(os.Stdout, text)
		return err
	}

	if err := os.WriteFile(output, []byte(text), 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	log.Info().Str("input", input).Str("output", output).Msg("Rendered SNBT")
	return nil
}
