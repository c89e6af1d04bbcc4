package cli

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/glorpus-work/apkpick/internal/logger"
	"github.com/glorpus-work/apkpick/pkg/config"
	"github.com/glorpus-work/apkpick/pkg/download"
	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/pkg/hooks"
	"github.com/glorpus-work/apkpick/pkg/orchestrator"
	"github.com/glorpus-work/apkpick/pkg/progress"
	"github.com/spf13/cobra"
)

type selectOptions struct {
	packages    string
	catalog     string
	output      string
	download    bool
	apiKey      string
	concurrency int
	keepGoing   bool
	vercode     string
	timeout     time.Duration
	noManifest  bool
	quiet       bool
}

// NewSelectCmd creates the select command.
func NewSelectCmd() *cobra.Command {
	opts := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the newest build of each matching package",
		Long: `Scan a catalog CSV, keep the highest version code of every package whose
name matches one of the globs in the packages file, and write the result to
<output>/filtered.csv. With --download each selected artifact is fetched to
<output>/<package>.apk.`,
		Example: `  apkpick select -p packages.yaml -c latest.csv -o out
  apkpick select -p packages.yaml -c latest.csv.gz -o out --download --api-key KEY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSelect(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.packages, "packages", "p", "", "YAML list of package name globs")
	flags.StringVarP(&opts.catalog, "csv", "c", "", "catalog CSV, optionally compressed")
	flags.StringVarP(&opts.output, "output", "o", "", "output directory (default: settings.output_dir)")
	flags.BoolVarP(&opts.download, "download", "d", false, "download the selected artifacts")
	flags.StringVar(&opts.apiKey, "api-key", "", "archive api key (default: settings.api_key, $"+config.EnvAPIKey+")")
	flags.IntVar(&opts.concurrency, "concurrency", config.DefaultConcurrency, "number of parallel downloads")
	flags.BoolVar(&opts.keepGoing, "keep-going", false, "continue past failed downloads and report them at the end")
	flags.StringVar(&opts.vercode, "vercode", "", `version code constraint, e.g. ">= 100, < 200"`)
	flags.DurationVar(&opts.timeout, "timeout", config.DefaultHTTPTimeout, "timeout for a single download")
	flags.BoolVar(&opts.noManifest, "no-manifest", false, "do not write filtered.csv")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "hide progress bars")

	_ = cmd.MarkFlagRequired("packages")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

// applySelectFlags overrides config settings with the flags the user actually set.
func applySelectFlags(cmd *cobra.Command, cfg *config.Config, opts *selectOptions) {
	flags := cmd.Flags()
	s := &cfg.Settings
	if flags.Changed("output") {
		s.OutputDir = opts.output
	}
	if flags.Changed("api-key") {
		s.APIKey = opts.apiKey
	}
	if flags.Changed("concurrency") {
		s.Concurrency = opts.concurrency
	}
	if flags.Changed("keep-going") {
		s.KeepGoing = opts.keepGoing
	}
	if flags.Changed("vercode") {
		s.VersionConstraint = opts.vercode
	}
	if flags.Changed("timeout") {
		s.HTTPTimeout = opts.timeout
	}
}

func runSelect(cmd *cobra.Command, opts *selectOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applySelectFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := initLogging(cfg)
	defer logger.ResetRunAttrs()

	baseURL, err := cfg.BaseURL()
	if err != nil {
		return err
	}

	hookManager := hooks.NewHookManager()
	if err := hooks.LoadScripts(hookManager, map[hooks.HookType]string{
		hooks.PreFetch:  cfg.Settings.Hooks.PreFetch,
		hooks.PostFetch: cfg.Settings.Hooks.PostFetch,
	}); err != nil {
		return errors.Categorize(errors.ErrConfig, err)
	}

	o := &orchestrator.Orchestrator{
		Hooks:  hookManager,
		Events: orchestrator.Events{OnEvent: logEvent},
	}
	if opts.download {
		o.DL = download.NewManager(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)
	}
	if !opts.quiet {
		o.ScanProgress = progress.NewBar(progress.Options{
			Writer: cmd.ErrOrStderr(), Description: "scanning", Bytes: true, Throttle: ProgressThrottle,
		})
		o.FetchProgress = progress.NewBar(progress.Options{
			Writer: cmd.ErrOrStderr(), Description: "fetching", Throttle: ProgressThrottle,
		})
	}

	logger.Debug("Starting run", logger.Fields{
		"packages": opts.packages, "catalog": opts.catalog, "output": cfg.Settings.OutputDir, "download": opts.download,
	})
	summary, err := o.Run(cmd.Context(), orchestrator.Request{
		RunID:             runID,
		PatternsFile:      opts.packages,
		CatalogFile:       opts.catalog,
		OutputDir:         cfg.Settings.OutputDir,
		VersionConstraint: cfg.Settings.VersionConstraint,
		NoManifest:        opts.noManifest,
		Download:          opts.download,
		APIKey:            cfg.Settings.APIKey,
		BaseURL:           baseURL,
		Concurrency:       cfg.Settings.Concurrency,
		KeepGoing:         cfg.Settings.KeepGoing,
	})
	printSummary(cmd, summary, opts.download)
	if err != nil {
		return err
	}

	logger.Success("Run complete", logger.Fields{"selected": summary.Selected, "downloaded": summary.Downloaded})
	return nil
}

func printSummary(cmd *cobra.Command, s orchestrator.Summary, downloaded bool) {
	if s.Rows == 0 && s.Selected == 0 {
		return
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Scanned %d rows (%d malformed), %d matched, %d packages selected\n",
		s.Rows, s.RowErrors, s.Matched, s.Selected)
	if s.ManifestPath != "" {
		_, _ = fmt.Fprintf(out, "Manifest: %s\n", s.ManifestPath)
	}
	if downloaded {
		_, _ = fmt.Fprintf(out, "Downloaded %d, skipped %d, failed %d\n", s.Downloaded, s.Skipped, s.Failed)
		for _, id := range slices.Sorted(maps.Keys(s.Failures)) {
			_, _ = fmt.Fprintf(out, "  %s: %v\n", id, s.Failures[id])
		}
	}
}

func logEvent(e orchestrator.Event) {
	fields := logger.Fields{"phase": e.Phase}
	if e.ID != "" {
		fields["package"] = e.ID
	}
	if e.Msg != "" {
		fields["detail"] = e.Msg
	}
	logger.Debug("Progress", fields)
}
