package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/discover"
	"github.com/jonathan/apply-agent/internal/engine"
	"github.com/jonathan/apply-agent/internal/filter"
	"github.com/jonathan/apply-agent/internal/generate"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/quota"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/sponsor"
	"github.com/jonathan/apply-agent/internal/store"
	"github.com/jonathan/apply-agent/internal/submit"
	"github.com/jonathan/apply-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one application cycle end-to-end",
	Long: `Runs one full cycle: discovery -> filtering -> content generation -> paced submission.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values. Board credentials come from the BOARD_USERNAME and BOARD_PASSWORD environment variables.`,
	RunE: runCycleCmd,
}

var (
	runConfigPath  string
	runBoards      []string
	runMaxJobs     int
	runAPIKey      string
	runDatabaseURL string
	runVisible     bool
	runVerbose     bool
	runYes         bool
	runSeed        int64
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringSliceVar(&runBoards, "boards", nil, "Job boards to search (linkedin, indeed, ziprecruiter)")
	runCommand.Flags().IntVar(&runMaxJobs, "max-jobs", 0, "Maximum postings to pull per cycle")
	runCommand.Flags().BoolVar(&runVisible, "visible", false, "Run the browser with a visible window")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")
	runCommand.Flags().BoolVarP(&runYes, "yes", "y", false, "Skip the confirmation prompt before submitting")
	runCommand.Flags().Int64Var(&runSeed, "seed", 0, "Pacing random seed (0 = time-based)")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for record persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runCycleCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	// Credentials never live in the config file.
	creds := session.Credentials{
		Username: os.Getenv("BOARD_USERNAME"),
		Password: os.Getenv("BOARD_PASSWORD"),
	}
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("BOARD_USERNAME and BOARD_PASSWORD environment variables are required")
	}

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	quotas := quota.NewManager(quota.Caps{Hourly: cfg.Quotas.Hourly, Daily: cfg.Quotas.Daily}, db)
	if err := quotas.Load(ctx, engine.PermitKind); err != nil {
		return err
	}

	checker := sponsor.NewChecker(sponsor.WithVerbose(cfg.Verbose))
	registry := discover.NewRegistry()
	for _, board := range cfg.Boards {
		switch board {
		case "linkedin":
			registry.Add(discover.NewLinkedInBoard())
		case "indeed":
			registry.Add(discover.NewIndeedBoard())
		case "ziprecruiter":
			registry.Add(discover.NewZipRecruiterBoard())
		default:
			return fmt.Errorf("unknown board %q", board)
		}
	}
	var discoverer engine.Discoverer = registry
	if cfg.Profile.Preferences.Sponsorship != "" && cfg.Profile.Preferences.Sponsorship != types.SponsorshipOff {
		discoverer = &sponsorPreloadingDiscoverer{registry: registry, checker: checker}
	}

	generator, err := generate.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Generation.Model)
	if err != nil {
		return fmt.Errorf("failed to create content generator: %w", err)
	}
	defer func() { _ = generator.Close() }()

	orchestrator := generate.NewOrchestrator(generator, generate.NewCache(db), &generate.Options{
		Timeout:     cfg.GenerationTimeout(),
		MaxRetries:  cfg.Generation.MaxRetries,
		Concurrency: int64(cfg.Generation.Concurrency),
	})

	driver, err := browser.NewChromeDriver(ctx, &browser.Options{Headless: !cfg.Visible})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() { _ = driver.Close() }()

	supervisor := session.NewSupervisor(driver, session.DefaultLinkedInConfig(), creds, cfg.Verbose)

	policy, err := cfg.PacingPolicy()
	if err != nil {
		return err
	}
	seed := runSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sampler := pacing.NewSampler(policy, rand.New(rand.NewSource(seed)))

	eng := engine.New(
		db,
		quotas,
		filter.New(checker),
		orchestrator,
		supervisor,
		submit.NewSubmitter(),
		discoverer,
		sampler,
		&cfg.Profile,
		&engine.Options{
			MaxAttempts:           cfg.Submission.MaxAttempts,
			BlockCooldown:         cfg.BlockCooldown(),
			BlockPauseThreshold:   2,
			ContentDir:            cfg.ContentDir,
			GenerationConcurrency: cfg.Generation.Concurrency,
		},
	)

	if !runYes && !confirmRun(cfg) {
		fmt.Println("Aborted.")
		return nil
	}

	report, err := eng.RunCycle(ctx, discover.Query{
		Titles:    cfg.Profile.Preferences.Titles,
		Locations: cfg.Profile.Preferences.Locations,
		Limit:     cfg.MaxJobs,
	})
	if report != nil {
		observability.NewPrinter(os.Stdout).PrintCycleReport(report)
	}
	return err
}

// loadRunConfig loads the config file, applies CLI overrides and defaults, and
// resolves the required secrets from the environment.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// CLI overrides win over file values, but only when explicitly set.
	if cmd.Flags().Changed("boards") {
		cfg.Boards = runBoards
	}
	if cmd.Flags().Changed("max-jobs") {
		cfg.MaxJobs = runMaxJobs
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("visible") {
		cfg.Visible = runVisible
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	cfg = cfg.MergeWithDefaults(config.DefaultConfig())

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	if cfg.Profile.Name == "" || cfg.Profile.Email == "" {
		return nil, fmt.Errorf("profile name and email are required (via config file)")
	}
	if len(cfg.Profile.Preferences.Titles) == 0 {
		return nil, fmt.Errorf("at least one preferred title is required (via config file)")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// confirmRun asks the operator to approve the cycle before any submission.
func confirmRun(cfg *config.Config) bool {
	fmt.Printf("About to search %s for %q and submit up to %d applications today as %s.\n",
		strings.Join(cfg.Boards, ", "),
		strings.Join(cfg.Profile.Preferences.Titles, ", "),
		cfg.Quotas.Daily,
		cfg.Profile.Name,
	)
	fmt.Print("Proceed? [y/N]: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// sponsorPreloadingDiscoverer resolves sponsorship verdicts for discovered
// companies before the postings reach the filter, which answers from cache
// only.
type sponsorPreloadingDiscoverer struct {
	registry *discover.Registry
	checker  *sponsor.Checker
}

func (d *sponsorPreloadingDiscoverer) FetchAll(ctx context.Context, query discover.Query) []types.JobPosting {
	jobs := d.registry.FetchAll(ctx, query)

	companies := make([]string, 0, len(jobs))
	seen := make(map[string]bool)
	for _, job := range jobs {
		if job.Company == "" || seen[job.Company] {
			continue
		}
		seen[job.Company] = true
		companies = append(companies, job.Company)
	}
	d.checker.Preload(ctx, companies)

	for i := range jobs {
		jobs[i].Sponsorship = d.checker.Lookup(jobs[i].Company)
	}
	return jobs
}
