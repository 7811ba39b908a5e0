package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitbench/packages/core/config"
	"github.com/abdul-hamid-achik/hitbench/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbench/packages/db"
	"github.com/abdul-hamid-achik/hitbench/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitbench/packages/fixture/memdom"
	"github.com/abdul-hamid-achik/hitbench/packages/notify"
	"github.com/abdul-hamid-achik/hitbench/packages/output"
	"github.com/abdul-hamid-achik/hitbench/packages/page"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

var runCmd = &cobra.Command{
	Use:   "run <suites.yaml>",
	Short: "Run benchmark suites",
	Long: `Run the suites defined in a YAML suite file.

Fixture URLs are resolved against the resource base, relative to the
directory of the suite file.

Examples:
  hitbench run suites.yaml
  hitbench run suites.yaml --iterations 5
  hitbench run suites.yaml --batch -v
  hitbench run suites.yaml --suite TodoMVC,Lists
  hitbench run suites.yaml --json report.json --db history.db
  hitbench run suites.yaml --json - --quiet | jq .score
  hitbench run suites.yaml --metrics prometheus --metrics-file bench.prom
  hitbench run suites.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// DefaultJSONReport is written when the config enables the json reporter without --json
	DefaultJSONReport = "hitbench-report.json"

	// DefaultJUnitReport is written when the config enables the junit reporter without --junit
	DefaultJUnitReport = "hitbench-junit.xml"
)

var (
	configFlag       string
	iterationsFlag   int
	batchFlag        bool
	fpsFlag          int
	pollIntervalFlag int
	resourceBaseFlag string
	suiteFlag        string
	jsonFlag         string
	junitFlag        string
	dbFlag           string
	seedFlag         int64
	watchFlag        bool
	quietFlag        bool
	noColorFlag      bool
	noProgressFlag   bool
	verboseFlag      bool

	// Metrics flags
	metricsFlag       string
	metricsPortFlag   int
	metricsFileFlag   string
	datadogAPIKeyFlag string
	datadogSiteFlag   string
	datadogTagsFlag   string

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITBENCH_CONFIG", ""), "Path to config file (env: HITBENCH_CONFIG)")
	runCmd.Flags().StringVar(&suiteFlag, "suite", "", "Run only the named suites (comma-separated)")

	// Execution flags
	runCmd.Flags().IntVarP(&iterationsFlag, "iterations", "n", config.DefaultIterations, "Number of iterations")
	runCmd.Flags().BoolVar(&batchFlag, "batch", false, "Record interactions instead of performing them")
	runCmd.Flags().IntVar(&fpsFlag, "fps", config.DefaultFPS, "Simulated paint rate of the fixture host")
	runCmd.Flags().IntVar(&pollIntervalFlag, "poll-interval", config.DefaultPollInterval, "Delay between element lookups while waiting, in milliseconds")
	runCmd.Flags().StringVar(&resourceBaseFlag, "resource-base", config.DefaultResourceBase, "Prefix applied to suite URLs")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 1, "Seed for the bootstrap confidence interval")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite and fixture files and re-run on change")

	// Output flags
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show per-test timings and batch action logs")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress console output")
	runCmd.Flags().BoolVar(&noProgressFlag, "no-progress", false, "Disable per-test progress lines")
	runCmd.Flags().StringVar(&jsonFlag, "json", "", "Write a JSON report to file (\"-\" for stdout)")
	runCmd.Flags().StringVar(&junitFlag, "junit", "", "Write a JUnit XML report to file (\"-\" for stdout)")
	runCmd.Flags().StringVar(&dbFlag, "db", getEnvString("HITBENCH_DB", ""), "Record every iteration in a SQLite history database (env: HITBENCH_DB)")

	// Metrics flags
	runCmd.Flags().StringVar(&metricsFlag, "metrics", getEnvString("HITBENCH_METRICS", ""), "Metrics export format: prometheus, datadog, json (env: HITBENCH_METRICS)")
	runCmd.Flags().IntVar(&metricsPortFlag, "metrics-port", getEnvInt("HITBENCH_METRICS_PORT", 0), "Serve Prometheus metrics on this port (env: HITBENCH_METRICS_PORT)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("HITBENCH_METRICS_FILE", ""), "Output file for prometheus or json metrics (env: HITBENCH_METRICS_FILE)")
	runCmd.Flags().StringVar(&datadogAPIKeyFlag, "datadog-api-key", getEnvString("DD_API_KEY", ""), "DataDog API key (env: DD_API_KEY)")
	runCmd.Flags().StringVar(&datadogSiteFlag, "datadog-site", getEnvString("DD_SITE", "datadoghq.com"), "DataDog site (env: DD_SITE)")
	runCmd.Flags().StringVar(&datadogTagsFlag, "datadog-tags", getEnvString("DD_TAGS", ""), "Comma-separated DataDog tags (env: DD_TAGS)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("HITBENCH_NOTIFY", ""), "Notification service: slack, teams (env: HITBENCH_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("HITBENCH_NOTIFY_ON", "always"), "When to notify: always, failure, success, recovery (env: HITBENCH_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// flagConfig returns the settings given explicitly on the command line.
func flagConfig(cmd *cobra.Command) *config.Config {
	flags := cmd.Flags()
	c := &config.Config{}
	if flags.Changed("iterations") {
		c.Iterations = iterationsFlag
	}
	if flags.Changed("batch") {
		c.Batch = config.BoolPtr(batchFlag)
	}
	if flags.Changed("fps") {
		c.FPS = fpsFlag
	}
	if flags.Changed("poll-interval") {
		c.PollInterval = pollIntervalFlag
	}
	if flags.Changed("resource-base") {
		c.ResourceBase = resourceBaseFlag
	}
	if flags.Changed("verbose") {
		c.Verbose = config.BoolPtr(verboseFlag)
	}
	if noColorFlag {
		c.NoColor = config.BoolPtr(true)
	}
	if dbFlag != "" {
		c.HistoryDB = dbFlag
	}
	return c
}

func runCommand(cmd *cobra.Command, args []string) error {
	path := args[0]

	overrides := flagConfig(cmd)
	if err := overrides.Validate(); err != nil {
		return withExitCode(ExitUsageError, err)
	}
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	cfg := fileConfig.Merge(overrides)

	notifier, err := newNotifyManager()
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	run := func() error {
		return runOnce(ctx, cmd, path, cfg, notifier)
	}

	err = run()
	if !watchFlag {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return watch(ctx, cmd, path, run)
}

// runOnce loads the suite file and runs every configured iteration.
func runOnce(ctx context.Context, cmd *cobra.Command, path string, cfg *config.Config, notifier *notify.Manager) error {
	f, err := suite.LoadFile(path)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}
	suites, err := f.Compile()
	if err != nil {
		return withExitCode(ExitParseError, fmt.Errorf("%s: %w", path, err))
	}
	names := splitList(suiteFlag)
	if err := checkSuiteNames(suites, names); err != nil {
		return withExitCode(ExitUsageError, err)
	}
	suites = suite.Filter(suites, names)

	resourceBase := f.ResourceBase
	if cfg.ResourceBase != "" && cfg.ResourceBase != config.DefaultResourceBase {
		resourceBase = cfg.ResourceBase
	}

	mode := page.Live
	if cfg.GetBatch() {
		mode = page.Batch
	}

	runID := uuid.NewString()
	stdout := cmd.OutOrStdout()
	consoleOut := stdout
	if jsonFlag == "-" || junitFlag == "-" {
		consoleOut = cmd.ErrOrStderr()
	}

	var clients []*runner.Client
	var closers []func() error
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	var reporter *output.Reporter
	if !quietFlag && (len(cfg.Reporters) == 0 || cfg.HasReporter("console")) {
		reporter = output.NewReporter(
			output.WithWriter(consoleOut),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
			output.WithNoProgress(noProgressFlag),
		)
		reporter.Header(version)
		reporter.Info("%s: %d of %d suites enabled, %s mode", path, suite.Enabled(suites), len(suites), mode)
		clients = append(clients, reporter.Client())
	}

	jsonPath := jsonFlag
	if jsonPath == "" && cfg.HasReporter("json") {
		jsonPath = DefaultJSONReport
	}
	var jsonFmt *output.JSONFormatter
	if jsonPath != "" {
		w, closeFn, err := openReport(stdout, jsonPath)
		if err != nil {
			return err
		}
		closers = append(closers, closeFn)
		jsonFmt = output.NewJSONFormatter(
			output.JSONWithWriter(w),
			output.JSONWithRunID(runID),
			output.JSONWithVersion(version),
			output.JSONWithMode(mode.String()),
			output.JSONWithSeed(seedFlag),
		)
		clients = append(clients, jsonFmt.Client())
	}

	junitPath := junitFlag
	if junitPath == "" && cfg.HasReporter("junit") {
		junitPath = DefaultJUnitReport
	}
	var junitFmt *output.JUnitFormatter
	if junitPath != "" {
		w, closeFn, err := openReport(stdout, junitPath)
		if err != nil {
			return err
		}
		closers = append(closers, closeFn)
		junitFmt = output.NewJUnitFormatter(output.JUnitWithWriter(w))
		clients = append(clients, junitFmt.Client())
	}

	collector, closeMetrics, err := newMetricsCollector(cmd, stdout)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	closers = append(closers, closeMetrics)
	if collector != nil {
		clients = append(clients, collector.Client())
	}

	var historyErr error
	if cfg.HistoryDB != "" {
		history, err := db.NewClient(cfg.HistoryDB)
		if err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("opening history database: %w", err))
		}
		closers = append(closers, history.Close)
		iteration := 0
		clients = append(clients, &runner.Client{
			DidRunSuites: func(s *results.Summary) {
				iteration++
				if historyErr != nil {
					return
				}
				historyErr = history.SaveRun(ctx, db.NewRun(runID, path, mode.String(), iteration, s))
			},
		})
	}

	host := memdom.NewHost(memdom.WithDir(filepath.Dir(path)))
	r := runner.NewRunner(suites, host,
		runner.WithClient(runner.Merge(clients...)),
		runner.WithMode(mode),
		runner.WithFrameSync(memdom.NewFrameClock(cfg.FPS)),
		runner.WithResourceBase(resourceBase),
		runner.WithPollInterval(cfg.GetPollInterval()),
	)

	start := time.Now()
	summaries, runErr := r.RunMultipleIterations(ctx, cfg.Iterations)
	duration := time.Since(start)

	if reporter != nil && len(summaries) > 1 {
		reporter.FormatIterations(results.Iterations(summaries, seedFlag))
	}

	var flushErrs []error
	if jsonFmt != nil {
		flushErrs = append(flushErrs, jsonFmt.Flush())
	}
	if junitFmt != nil {
		junitFmt.Skip(suites)
		if runErr != nil {
			junitFmt.FormatError(runErr)
		}
		flushErrs = append(flushErrs, junitFmt.Flush())
	}
	if collector != nil && len(summaries) > 0 {
		flushErrs = append(flushErrs, collector.Flush())
	}

	if notifier != nil {
		summary := notify.NewRunSummary(runID, path, mode.String(), summaries, duration, runErr)
		if err := notifier.Notify(summary); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to send notification: %v\n", err)
		}
	}

	if runErr != nil {
		return withExitCode(ExitBenchmarkError, runErr)
	}
	if historyErr != nil {
		return fmt.Errorf("saving run history: %w", historyErr)
	}
	if err := errors.Join(flushErrs...); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	return nil
}

// newNotifyManager builds the notifiers named by --notify, or returns nil.
func newNotifyManager() (*notify.Manager, error) {
	services := splitList(notifyFlag)
	if len(services) == 0 {
		return nil, nil
	}
	notifyOn, ok := notify.ParseNotifyOn(notifyOnFlag)
	if !ok {
		return nil, fmt.Errorf("invalid --notify-on value %q", notifyOnFlag)
	}

	var notifiers []notify.Notifier
	for _, service := range services {
		switch strings.ToLower(service) {
		case "slack":
			if slackWebhookFlag == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if slackChannelFlag != "" {
				opts = append(opts, notify.WithSlackChannel(slackChannelFlag))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(slackWebhookFlag, opts...))
		case "teams":
			if teamsWebhookFlag == "" {
				return nil, fmt.Errorf("--teams-webhook is required when using --notify teams")
			}
			notifiers = append(notifiers, notify.NewTeamsNotifier(teamsWebhookFlag))
		default:
			return nil, fmt.Errorf("unknown notification service %q", service)
		}
	}
	return notify.NewManager(notifyOn, notifiers...), nil
}

func checkSuiteNames(suites []*suite.Suite, names []string) error {
	known := make(map[string]bool, len(suites))
	for _, s := range suites {
		known[s.Name] = true
	}
	for _, n := range names {
		if !known[n] {
			return fmt.Errorf("unknown suite %q", n)
		}
	}
	return nil
}

func nopClose() error { return nil }

// openReport returns a writer for path, or stdout for "-".
func openReport(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return stdout, nopClose, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create report file: %w", err)
	}
	return f, f.Close, nil
}

// newMetricsCollector builds the exporters named by --metrics, or returns nil.
// The returned func closes the exporters and any metrics file.
func newMetricsCollector(cmd *cobra.Command, stdout io.Writer) (*metrics.Collector, func() error, error) {
	formats := splitList(metricsFlag)
	if len(formats) == 0 {
		return nil, nopClose, nil
	}

	var exporters []metrics.Exporter
	var files []*os.File
	closeFiles := func() error {
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*metrics.Collector, func() error, error) {
		_ = closeFiles()
		return nil, nopClose, err
	}
	fileUsed := false
	for _, format := range formats {
		switch strings.ToLower(format) {
		case "prometheus":
			var opts []metrics.PrometheusOption
			if metricsFileFlag != "" {
				if fileUsed {
					return fail(errors.New("--metrics-file can only be used by one metrics format"))
				}
				fileUsed = true
				f, err := os.Create(metricsFileFlag)
				if err != nil {
					return fail(fmt.Errorf("cannot create metrics file: %w", err))
				}
				files = append(files, f)
				opts = append(opts, metrics.WithPrometheusWriter(f))
			}
			if metricsPortFlag > 0 {
				opts = append(opts, metrics.WithPrometheusHTTP(metricsPortFlag))
				fmt.Fprintf(cmd.ErrOrStderr(), "Prometheus metrics available at http://localhost:%d/metrics\n", metricsPortFlag)
			}
			if len(opts) == 0 {
				return fail(errors.New("prometheus metrics need --metrics-file or --metrics-port"))
			}
			exporters = append(exporters, metrics.NewPrometheusExporter(opts...))

		case "datadog":
			ddOpts := []metrics.DataDogOption{metrics.WithDataDogSite(datadogSiteFlag)}
			if datadogAPIKeyFlag != "" {
				ddOpts = append(ddOpts, metrics.WithDataDogAPIKey(datadogAPIKeyFlag))
			}
			if tags := splitList(datadogTagsFlag); len(tags) > 0 {
				ddOpts = append(ddOpts, metrics.WithDataDogTags(tags))
			}
			exporters = append(exporters, metrics.NewDataDogExporter(ddOpts...))

		case "json":
			jsonOpts := []metrics.JSONOption{metrics.WithJSONVersion(version)}
			if metricsFileFlag != "" {
				if fileUsed {
					return fail(errors.New("--metrics-file can only be used by one metrics format"))
				}
				fileUsed = true
				jsonOpts = append(jsonOpts, metrics.WithJSONFile(metricsFileFlag))
			} else {
				jsonOpts = append(jsonOpts, metrics.WithJSONWriter(stdout))
			}
			exporters = append(exporters, metrics.NewJSONExporter(jsonOpts...))

		default:
			return fail(fmt.Errorf("unknown metrics format %q", format))
		}
	}

	collector := metrics.NewCollector(exporters...)
	return collector, func() error {
		return errors.Join(collector.Close(), closeFiles())
	}, nil
}

func watch(ctx context.Context, cmd *cobra.Command, path string, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	root := filepath.Dir(path)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounce <-chan time.Time
	var changed string
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if !isSuiteFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				changed = event.Name
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			fmt.Fprintf(out, "\n\nFile changed: %s\nRe-running benchmarks...\n\n", changed)
			if err := run(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}

func isSuiteFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
