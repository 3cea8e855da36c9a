package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bedrock-loadtest/internal/bedrock"
	"bedrock-loadtest/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify AWS credentials and the test configuration",
	Long: `Check loads both configuration files, resolves AWS credentials and calls
STS GetCallerIdentity, then lists what a run would test. Nothing is
invoked against Bedrock.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadTestConfigFile(configPath)
	if err != nil {
		return err
	}
	models, err := config.LoadModelsConfig(modelsPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identity, err := bedrock.CheckCredentials(ctx, bedrock.ClientConfig{
		Region:          cfg.AWS.Region,
		Profile:         cfg.AWS.Profile,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		return err
	}

	fmt.Println("Credentials OK")
	fmt.Printf("  Account: %s\n", identity.Account)
	fmt.Printf("  ARN:     %s\n", identity.ARN)
	fmt.Printf("  Region:  %s\n", cfg.AWS.Region)
	fmt.Println()

	enabled := models.EnabledModels()
	fmt.Printf("Enabled models: %d\n", len(enabled))
	for _, m := range enabled {
		fmt.Printf("  %s (%s)\n", m.Name, m.ModelID)
	}
	if models.KnowledgeBase.Enabled {
		kb := models.KnowledgeBase
		categories := make(map[string]struct{})
		for _, q := range kb.Queries {
			categories[q.Category] = struct{}{}
		}
		fmt.Printf("Knowledge base: %s (max concurrency %d)\n", kb.KnowledgeBaseID, kb.MaxConcurrency)
		fmt.Printf("  Queries: %d across %d categories\n", len(kb.Queries), len(categories))
	}
	fmt.Printf("Concurrency levels: %v\n", cfg.LoadTest.ConcurrentUsers)
	return nil
}
