package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aws-snapshot-utility/aws"
	"aws-snapshot-utility/config"
	flog "aws-snapshot-utility/logger"
	"aws-snapshot-utility/models"
	"aws-snapshot-utility/service"
)

const serviceName = "shotty"

var (
	logger   *flog.Logger
	settings *config.Config

	verbose     bool
	configPath  string
	profile     string
	region      string
	waitTimeout time.Duration
	logFormat   string
	project     string
)

// fleetFactory builds the EC2-backed fleet. Tests replace it with a fake.
var fleetFactory = newEC2Fleet

var rootCmd = &cobra.Command{
	Use:   "shotty",
	Short: "Shotty manages snapshots",
	Long: `Shotty manages EC2 instances, their EBS volumes and the volumes'
snapshots, selecting instances by their "project" tag.

Credentials and region come from the named AWS profile (default "shotty")
through the standard AWS shared config and environment lookup.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func loadSettings(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.Profile = profile
	}
	if flags.Changed("region") {
		cfg.Region = region
	}
	if flags.Changed("wait-timeout") {
		cfg.WaitTimeout = waitTimeout
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	// -v raises quiet levels to info but never lowers debug.
	if verbose && (cfg.LogLevel == flog.LevelWarn || cfg.LogLevel == flog.LevelError) {
		cfg.LogLevel = flog.LevelInfo
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	settings = cfg

	return buildLogger(cfg)
}

func buildLogger(cfg *config.Config) error {
	var err error
	logger, err = flog.NewLogger(flog.Config{
		LogLevel:    cfg.LogLevel,
		DevMode:     cfg.LogFormat == config.LogFormatDevelopment,
		ServiceName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}

func newEC2Fleet(ctx context.Context, cfg *config.Config, logger *flog.Logger) (service.Fleet, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithSharedConfigProfile(cfg.Profile),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error("failed to load AWS config",
			zap.String("profile", cfg.Profile),
			zap.String("region", cfg.Region),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	awsClient, err := aws.NewAWSClient(ctx, awsCfg.Region, ec2.NewFromConfig(awsCfg), logger,
		aws.WithWaitTimeout(cfg.WaitTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS client: %w", err)
	}

	logger.Info("aws session ready",
		zap.String("profile", cfg.Profile),
		zap.String("region", awsClient.Region()),
	)

	return aws.NewFleetProvider(awsClient), nil
}

// runWithService wires a SnapshotService for the command and runs fn with
// the --project filter.
func runWithService(fn func(ctx context.Context, svc *service.SnapshotService, project models.ProjectFilter) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cmdLogger := logger.With(zap.String("command", cmd.CommandPath()))

		cmdLogger.Info("command started",
			zap.String("project", project),
			zap.String("profile", settings.Profile),
		)

		fleet, err := fleetFactory(ctx, settings, cmdLogger)
		if err != nil {
			return err
		}

		svc := service.NewSnapshotService(fleet, cmd.OutOrStdout(), cmdLogger)
		return fn(ctx, svc, models.ProjectFilter(project))
	}
}

func addProjectFlag(cmd *cobra.Command, help string) {
	cmd.Flags().StringVar(&project, "project", "", help)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to an HCL config file")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", config.DefaultProfile, "AWS shared config profile")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "AWS region (default: taken from the profile)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format: console or development")
	rootCmd.PersistentFlags().DurationVar(&waitTimeout, "wait-timeout", config.DefaultWaitTimeout, "Maximum time to wait for an instance to stop or start")
}
