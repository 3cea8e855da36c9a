package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bedrock-loadtest/internal/bedrock"
	"bedrock-loadtest/internal/config"
	"bedrock-loadtest/internal/loadtest"
	"bedrock-loadtest/internal/report"
)

var (
	skipPreflight bool
	runOutputDir  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured load test suites",
	Long: `Run executes the configured load test: every enabled foundation model is
driven through the concurrency ladder, then the knowledge base if one is
enabled. Results are printed to the console and saved in the configured
report formats. Interrupting the run keeps the stages completed so far.`,
	RunE: runLoadTest,
}

func init() {
	runCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip the AWS credential check before testing")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "report output directory (overrides the configured one)")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadTestConfigFile(configPath)
	if err != nil {
		return err
	}
	models, err := config.LoadModelsConfig(modelsPath)
	if err != nil {
		return err
	}
	if runOutputDir != "" {
		cfg.Output.Directory = runOutputDir
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := report.NewConsoleReporter(os.Stdout)

	clientCfg := bedrock.ClientConfig{
		Region:          cfg.AWS.Region,
		Profile:         cfg.AWS.Profile,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	}

	if !skipPreflight {
		identity, err := bedrock.CheckCredentials(ctx, clientCfg)
		if err != nil {
			return err
		}
		logger.Info("credentials verified",
			zap.String("account", identity.Account),
			zap.String("arn", identity.ARN))
	}

	fmTargets, err := foundationModelTargets(ctx, clientCfg, cfg, models)
	if err != nil {
		return err
	}
	kbTargets, err := knowledgeBaseTargets(ctx, clientCfg, models)
	if err != nil {
		return err
	}

	console.PrintHeader(cfg, targetLabels(fmTargets, kbTargets))

	var results []*loadtest.ResultSet

	if len(fmTargets) > 0 {
		console.PrintSection("Foundation Model Load Test")
		rs, err := runSuite(ctx, cfg, "foundation_models", cfg.LoadTest.ConcurrentUsers, fmTargets, logger)
		if err != nil {
			return err
		}
		console.PrintResultSet(rs)
		results = append(results, rs)
	}

	if len(kbTargets) > 0 && ctx.Err() == nil {
		console.PrintSection("Knowledge Base Load Test")
		levels, clamped := capLevels(cfg.LoadTest.ConcurrentUsers, models.KnowledgeBase.MaxConcurrency)
		if clamped {
			logger.Warn("knowledge base concurrency capped",
				zap.Int("max_concurrency", models.KnowledgeBase.MaxConcurrency),
				zap.Ints("levels", levels))
		}
		rs, err := runSuite(ctx, cfg, "knowledge_base", levels, kbTargets, logger)
		if err != nil {
			return err
		}
		console.PrintResultSet(rs)
		results = append(results, rs)
	}

	if ctx.Err() != nil {
		console.PrintWarning("run interrupted; results above are partial")
	}

	if err := writeReports(cfg, console, results); err != nil {
		return err
	}

	publishMetrics(cfg, clientCfg, console, results)
	return nil
}

// runSuite executes one concurrency ladder against a set of targets.
func runSuite(ctx context.Context, cfg *config.TestConfig, suite string, levels []int, targets []loadtest.Target, logger *zap.Logger) (*loadtest.ResultSet, error) {
	maxRequests := cfg.LoadTest.MaxRequests
	if maxRequests <= 0 {
		maxRequests = loadtest.NoRequestCap
	}

	orch, err := loadtest.NewOrchestrator(loadtest.RunConfig{
		Suite:          suite,
		Levels:         levels,
		Duration:       cfg.LoadTest.TestDuration.Std(),
		MaxRequests:    maxRequests,
		RequestTimeout: cfg.LoadTest.RequestTimeout.Std(),
		MaxRetries:     cfg.Retry.MaxRetries,
		BackoffFactor:  cfg.Retry.BackoffFactor,
		RampUp:         cfg.LoadTest.RampUpTime.Std(),
		RequestDelay:   cfg.LoadTest.RequestDelay.Std(),
		Quiescence:     cfg.LoadTest.StageQuiescence.Std(),
	}, targets, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s suite: %w", suite, err)
	}
	return orch.Run(ctx), nil
}

// foundationModelTargets builds one load target per enabled model, all
// sharing the configured prompt set.
func foundationModelTargets(ctx context.Context, cc bedrock.ClientConfig, cfg *config.TestConfig, models *config.ModelsConfig) ([]loadtest.Target, error) {
	enabled := models.EnabledModels()
	if len(enabled) == 0 {
		return nil, nil
	}

	client, err := bedrock.NewRuntimeClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	targets := make([]loadtest.Target, 0, len(enabled))
	for _, m := range enabled {
		invoker := bedrock.NewInvoker(client, m, cfg.LoadTest.Streaming)
		targets = append(targets, loadtest.Target{
			Label:   "foundation_model_" + m.Name,
			Prompts: cfg.Prompts,
			Invoke:  invoker.Invoke,
		})
	}
	return targets, nil
}

// knowledgeBaseTargets builds the single knowledge base target, cycling
// through the configured queries.
func knowledgeBaseTargets(ctx context.Context, cc bedrock.ClientConfig, models *config.ModelsConfig) ([]loadtest.Target, error) {
	kb := models.KnowledgeBase
	if !kb.Enabled {
		return nil, nil
	}

	client, err := bedrock.NewKnowledgeBaseClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	invoker := bedrock.NewKnowledgeBaseInvoker(client, kb)
	queries := make([]string, 0, len(kb.Queries))
	for _, q := range kb.Queries {
		queries = append(queries, q.Text)
	}
	return []loadtest.Target{{
		Label:   "knowledge_base",
		Prompts: queries,
		Invoke:  invoker.Invoke,
	}}, nil
}

// capLevels clamps a concurrency ladder to a limit and collapses the
// duplicate tail the clamping creates. The second return reports whether
// any level was reduced.
func capLevels(levels []int, limit int) ([]int, bool) {
	if limit <= 0 {
		return levels, false
	}
	clamped := false
	out := make([]int, 0, len(levels))
	for _, level := range levels {
		if level > limit {
			level = limit
			clamped = true
		}
		if len(out) > 0 && out[len(out)-1] == level {
			continue
		}
		out = append(out, level)
	}
	return out, clamped
}

func targetLabels(groups ...[]loadtest.Target) []string {
	var labels []string
	for _, group := range groups {
		for _, t := range group {
			labels = append(labels, t.Label)
		}
	}
	return labels
}

// writeReports saves the run results in each configured format.
func writeReports(cfg *config.TestConfig, console *report.ConsoleReporter, results []*loadtest.ResultSet) error {
	if len(results) == 0 || len(cfg.Output.Formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	for _, format := range cfg.Output.Formats {
		switch format {
		case "markdown":
			path := filepath.Join(cfg.Output.Directory, fmt.Sprintf("loadtest_report_%s.md", stamp))
			md := report.NewMarkdownReporter(cfg)
			if err := md.SaveToFile(md.Generate(results), path); err != nil {
				return fmt.Errorf("failed to save markdown report: %w", err)
			}
			console.PrintReportSaved(path)
		case "json":
			path := filepath.Join(cfg.Output.Directory, fmt.Sprintf("loadtest_report_%s.json", stamp))
			if err := report.WriteJSON(path, results); err != nil {
				return fmt.Errorf("failed to save json report: %w", err)
			}
			console.PrintReportSaved(path)
		}
	}
	return nil
}

// publishMetrics sends stage statistics to CloudWatch when enabled. A
// publish failure degrades to a warning so a finished run still reports.
// The fresh context lets publishing proceed after an interrupted run.
func publishMetrics(cfg *config.TestConfig, cc bedrock.ClientConfig, console *report.ConsoleReporter, results []*loadtest.ResultSet) {
	if !cfg.CloudWatch.Enabled || len(results) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := bedrock.AWSConfig(ctx, cc)
	if err != nil {
		console.PrintWarning(fmt.Sprintf("CloudWatch publish skipped: %v", err))
		return
	}

	publisher := report.NewPublisher(report.NewCloudWatchClient(awsCfg), cfg.CloudWatch.Namespace)
	for _, rs := range results {
		if err := publisher.Publish(ctx, rs); err != nil {
			console.PrintWarning(fmt.Sprintf("CloudWatch publish failed for %s: %v", rs.Suite, err))
		}
	}
}
