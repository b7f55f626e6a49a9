package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/pkg/cli"
	"github.com/haivivi/adscreen/pkg/screening"
	"github.com/haivivi/adscreen/pkg/storage"
)

// env is the per-invocation state shared by commands.
type env struct {
	cfg    *cli.Config
	logger *slog.Logger
	format cli.OutputFormat
}

// loadEnv reads the config file and applies the global flags.
func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := cli.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, format: format}, nil
}

// output writes result in the selected format.
func (e *env) output(cmd *cobra.Command, result any) error {
	opts := cli.OutputOptions{Format: e.format, Indent: "  "}
	if outputFile != "" {
		opts.File = outputFile
		plain := cli.PlainStyles()
		opts.Styles = &plain
	} else {
		opts.Writer = cmd.OutOrStdout()
	}
	return cli.Output(result, opts)
}

// Artifact and analysis flags shared by several commands.
var (
	scalerFlag       string
	modelFlag        string
	resampleFlag     int
	allowSilenceFlag bool
)

func addArtifactFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scalerFlag, "scaler", "", "scaler artifact: local path or s3://bucket/key (overrides config)")
	cmd.Flags().StringVar(&modelFlag, "model", "", "model artifact: local path or s3://bucket/key (overrides config)")
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&resampleFlag, "resample", 0, "resample recordings to this rate before analysis (0 = native rate)")
	cmd.Flags().BoolVar(&allowSilenceFlag, "allow-silence", false, "score all-silent recordings instead of rejecting them")
}

// analysisConfig merges the analysis flags over the config file.
func (e *env) analysisConfig() screening.Config {
	a := e.cfg.Analysis
	if resampleFlag > 0 {
		a.ResampleRate = resampleFlag
	}
	if allowSilenceFlag {
		a.AllowSilence = true
	}
	sc := screening.DefaultConfig()
	sc.ExpectedSampleRate = a.ExpectedSampleRate
	sc.ResampleRate = a.ResampleRate
	sc.Features.AllowSilence = a.AllowSilence
	return sc
}

// artifacts merges the artifact flags over the config file and returns a
// Resolver for them. An S3 client is only built when an artifact lives in
// S3.
func (e *env) artifacts(ctx context.Context) (cli.ArtifactsConfig, *storage.Resolver, error) {
	a := e.cfg.Artifacts
	if scalerFlag != "" {
		a.Scaler = scalerFlag
	}
	if modelFlag != "" {
		a.Model = modelFlag
	}
	if a.Scaler == "" || a.Model == "" {
		return a, nil, errors.New("artifacts not configured: set --scaler and --model or artifacts.scaler and artifacts.model in the config file")
	}

	var client storage.S3Client
	if isS3(a.Scaler) || isS3(a.Model) {
		c, err := newS3Client(ctx, a.S3)
		if err != nil {
			return a, nil, err
		}
		client = c
	}
	return a, storage.NewResolver(client), nil
}

// checkArtifacts reports every configured artifact that does not exist.
func checkArtifacts(ctx context.Context, r *storage.Resolver, a cli.ArtifactsConfig) error {
	var missing []string
	for _, art := range []struct{ name, path string }{
		{"scaler", a.Scaler},
		{"model", a.Model},
	} {
		loc, err := storage.ParseLocation(art.path)
		if err != nil {
			return fmt.Errorf("%s: %w", art.name, err)
		}
		ok, err := r.Exists(ctx, loc)
		if err != nil {
			return fmt.Errorf("check %s %s: %w", art.name, loc, err)
		}
		if !ok {
			missing = append(missing, art.name+" "+loc.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("artifacts not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// loadModels loads the scaler and model named by the flags or config.
func (e *env) loadModels(ctx context.Context) (*screening.Models, error) {
	a, resolver, err := e.artifacts(ctx)
	if err != nil {
		return nil, err
	}
	return e.loadFrom(ctx, resolver, a)
}

func (e *env) loadFrom(ctx context.Context, resolver *storage.Resolver, a cli.ArtifactsConfig) (*screening.Models, error) {
	models, err := screening.LoadArtifacts(ctx, resolver, a.Scaler, a.Model)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("loaded artifacts",
		"scaler", models.ScalerLocation.String(),
		"scaler_kind", models.Normalizer.Kind(),
		"model", models.ModelLocation.String(),
		"model_kind", models.Classifier.Kind(),
		"dim", models.Dim())
	return models, nil
}

// newScreener loads the artifacts and builds a screener.
func (e *env) newScreener(ctx context.Context) (*screening.Screener, error) {
	models, err := e.loadModels(ctx)
	if err != nil {
		return nil, err
	}
	return screening.New(models, e.analysisConfig(), screening.WithLogger(e.logger))
}

func isS3(loc string) bool {
	return strings.HasPrefix(loc, "s3://")
}

// newS3Client builds an S3 client from the standard AWS credential chain.
func newS3Client(ctx context.Context, c cli.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.UsePathStyle
	}), nil
}
