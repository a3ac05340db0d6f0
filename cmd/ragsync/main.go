package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tclip/ragsync/internal/cli"
	"github.com/tclip/ragsync/internal/config"
	"github.com/tclip/ragsync/internal/logging"
	"github.com/tclip/ragsync/internal/metrics"
	"github.com/tclip/ragsync/internal/objectstore"
	"github.com/tclip/ragsync/internal/syncer"
)

// CLI flags
var (
	configFlag        string
	sourceRootFlag    string
	processedRootFlag string
	bucketFlag        string
	regionFlag        string
	filterFlag        string
	workersFlag       int
	toleranceFlag     int
	chunkCharsFlag    int
	chunkDurFlag      float64
	retryFlag         int
	rateFlag          float64
	jsonFlag          bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "ragsync",
	Short: "Sync integrated program JSON files and their assets to S3",
	Long: `ragsync walks a source tree of integrated program JSON files, derives a
master record and a chunked transcript per document, and uploads them,
along with screenshot and audio sidecars, to an S3 bucket under a fixed
key layout. Only documents whose source file is newer than the stored
artifacts are re-uploaded, so repeated runs are cheap and resumable.

Examples:
  ragsync sync --source-root /mnt/nas/program-integration --processed-root /mnt/nas/processed
  ragsync sync --config ragsync.toml --workers 8
  ragsync status --config ragsync.toml`,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scan the source tree and upload changed documents",
	Run:   runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report what is currently stored under each key prefix",
	Run:   runStatus,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Path to a TOML config file")
	pf.StringVar(&sourceRootFlag, "source-root", "", "Root of the integrated JSON tree")
	pf.StringVar(&processedRootFlag, "processed-root", "", "Root of the processed store (screenshots, audio)")
	pf.StringVar(&bucketFlag, "bucket", "", "Target S3 bucket")
	pf.StringVar(&regionFlag, "region", "", "AWS region of the bucket")
	pf.StringVar(&filterFlag, "name-filter", "", "Substring a candidate file name must contain")
	pf.IntVar(&workersFlag, "workers", 0, "Concurrent document pipelines")
	pf.IntVar(&toleranceFlag, "staleness-tolerance", -1, "Staleness tolerance in seconds")
	pf.IntVar(&chunkCharsFlag, "chunk-max-chars", 0, "Chunk text bound in characters")
	pf.Float64Var(&chunkDurFlag, "chunk-max-duration", 0, "Chunk duration bound in seconds")
	pf.IntVar(&retryFlag, "retry-max", -1, "Max retries for transient upload failures")
	pf.Float64Var(&rateFlag, "uploads-per-second", 0, "Upload rate limit across workers (0 = unlimited)")
	syncCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the run summary as JSON")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges defaults, the optional config file, and any flags the
// user explicitly set.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Default()
	if configFlag != "" {
		var err error
		cfg, err = config.LoadFile(configFlag)
		if err != nil {
			log.Fatal().Err(err).Str("path", configFlag).Msg("Failed to load config file")
		}
	}

	flags := cmd.Flags()
	if flags.Changed("source-root") {
		cfg.SourceRoot = sourceRootFlag
	}
	if flags.Changed("processed-root") {
		cfg.ProcessedRoot = processedRootFlag
	}
	if flags.Changed("bucket") {
		cfg.Bucket = bucketFlag
	}
	if flags.Changed("region") {
		cfg.Region = regionFlag
	}
	if flags.Changed("name-filter") {
		cfg.NameFilter = filterFlag
	}
	if flags.Changed("workers") {
		cfg.Workers = workersFlag
	}
	if flags.Changed("staleness-tolerance") {
		cfg.StalenessToleranceSec = toleranceFlag
	}
	if flags.Changed("chunk-max-chars") {
		cfg.ChunkMaxChars = chunkCharsFlag
	}
	if flags.Changed("chunk-max-duration") {
		cfg.ChunkMaxDurationSec = chunkDurFlag
	}
	if flags.Changed("retry-max") {
		cfg.RetryMax = retryFlag
	}
	if flags.Changed("uploads-per-second") {
		cfg.UploadsPerSecond = rateFlag
	}
	return cfg
}

// newStore builds the S3-backed object store from the merged config.
func newStore(ctx context.Context, cfg config.Config) *objectstore.S3Store {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", awsCfg.Region).Str("bucket", cfg.Bucket).Msg("AWS config loaded")

	client := s3.NewFromConfig(awsCfg)
	return objectstore.NewS3Store(client, cfg.Bucket, objectstore.S3Options{
		RequestTimeout:   cfg.RequestTimeout(),
		UploadsPerSecond: cfg.UploadsPerSecond,
	})
}

// runSync is the main sync execution logic called by Cobra.
func runSync(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg := loadConfig(cmd)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cfg.SourceRoot = cli.ValidateAndResolveDirectory(cfg.SourceRoot)
	if cfg.ProcessedRoot != "" {
		cfg.ProcessedRoot = cli.ValidateAndResolveDirectory(cfg.ProcessedRoot)
	}

	logging.NewStartupLogger("sync").
		Bucket("bucket", cfg.Bucket).
		Bucket("masterPrefix", cfg.MasterPrefix).
		Bucket("chunkPrefix", cfg.ChunkPrefix).
		Path("sourceRoot", cfg.SourceRoot).
		Path("processedRoot", cfg.ProcessedRoot).
		Feature("sidecars", cfg.ProcessedRoot != "").
		Feature("rateLimit", cfg.UploadsPerSecond > 0).
		Config("workers", fmt.Sprint(cfg.Workers)).
		Config("stalenessTolerance", cfg.StalenessTolerance().String()).
		Log()

	ctx := context.Background()
	store := newStore(ctx, cfg)
	orch := syncer.New(store, cfg)

	summary, err := orch.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync run failed")
	}

	emitRunMetrics(cfg, summary)

	if jsonFlag {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode summary")
		}
		fmt.Println(string(out))
	} else {
		printSummary(summary)
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// emitRunMetrics writes the run counters as one EMF line so hosts with
// log shipping get CloudWatch metrics for free.
func emitRunMetrics(cfg config.Config, s *syncer.Summary) {
	metrics.New("RagSync").
		Dimension("Bucket", cfg.Bucket).
		Metric("DocumentsUploaded", float64(s.Uploaded), metrics.UnitCount).
		Metric("DocumentsSkipped", float64(s.Skipped), metrics.UnitCount).
		Metric("DocumentsFailed", float64(s.Failed), metrics.UnitCount).
		Metric("DocumentsPartial", float64(s.Partial), metrics.UnitCount).
		Metric("DurationMs", float64(s.Duration.Milliseconds()), metrics.UnitMilliseconds).
		Property("runId", s.RunID).
		Flush()
}

// printSummary renders the run summary for operators.
func printSummary(s *syncer.Summary) {
	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("Sync Run Summary")
	fmt.Println("============================================")
	fmt.Printf("Run ID:    %s\n", s.RunID)
	fmt.Printf("Duration:  %s\n", cli.FormatDurationShort(s.Duration))
	fmt.Printf("Documents: %d\n", s.Total())
	fmt.Printf("  uploaded: %d\n", s.Uploaded)
	fmt.Printf("  skipped:  %d\n", s.Skipped)
	fmt.Printf("  partial:  %d\n", s.Partial)
	fmt.Printf("  failed:   %d\n", s.Failed)
	fmt.Println("--------------------------------------------")

	for _, o := range s.Outcomes {
		line := fmt.Sprintf("[%s] %s", o.Status, o.EventID)
		if o.Chunks > 0 || o.Images > 0 || o.Audio > 0 {
			line += fmt.Sprintf(" (chunks: %d, images: %d, audio: %d)", o.Chunks, o.Images, o.Audio)
		}
		if o.Reason != "" && o.Status != syncer.StatusSkipped {
			line += ": " + o.Reason
		}
		fmt.Println(line)
	}

	if len(s.Warnings) > 0 {
		fmt.Println("--------------------------------------------")
		fmt.Printf("Warnings (%d):\n", len(s.Warnings))
		for _, w := range s.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	fmt.Println("============================================")
}

// runStatus lists what is stored under each configured prefix.
func runStatus(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg := loadConfig(cmd)
	if cfg.Bucket == "" {
		log.Fatal().Msg("bucket is required")
	}

	ctx := context.Background()
	store := newStore(ctx, cfg)

	prefixes := []struct{ label, prefix string }{
		{"master", cfg.MasterPrefix},
		{"chunks", cfg.ChunkPrefix},
		{"images", cfg.ImagePrefix},
		{"audio", cfg.AudioPrefix},
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Printf("Stored Objects: s3://%s\n", cfg.Bucket)
	fmt.Println("============================================")
	for _, p := range prefixes {
		objects, err := store.List(ctx, p.prefix)
		if err != nil {
			log.Fatal().Err(err).Str("prefix", p.prefix).Msg("Failed to list objects")
		}
		var bytes int64
		for _, obj := range objects {
			bytes += obj.Size
		}
		fmt.Printf("%-8s %s: %d objects, %.1f MB\n", p.label, p.prefix, len(objects), float64(bytes)/(1024*1024))
	}
	fmt.Println("============================================")
}
