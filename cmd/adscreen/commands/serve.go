package commands

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/adscreen/pkg/cli"
	"github.com/haivivi/adscreen/pkg/server"
	"github.com/haivivi/adscreen/pkg/storage"
)

var (
	serveAddr       string
	serveStagingDir string
	serveDrain      time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP screening service",
	Long: `Load the artifacts once and serve screening requests.

Routes:
  POST /v1/assessments  multipart upload, field "audio" (.wav or .mp3)
  GET  /healthz         liveness
  GET  /readyz          readiness
  GET  /metrics         prometheus metrics

The service fails at startup if the artifacts cannot be loaded.

Examples:
  adscreen serve --addr :9000
  curl -F audio=@speech.wav http://localhost:9000/v1/assessments`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		sc := e.cfg.Server
		if serveAddr != "" {
			sc.Addr = serveAddr
		}
		if serveStagingDir != "" {
			sc.StagingDir = serveStagingDir
		}
		if sc.StagingDir == "" {
			paths, err := cli.NewPaths()
			if err != nil {
				return err
			}
			sc.StagingDir = paths.StagingDir()
		}

		scr, err := e.newScreener(cmd.Context())
		if err != nil {
			return err
		}
		staging, err := storage.NewLocal(sc.StagingDir)
		if err != nil {
			return err
		}
		srv, err := server.New(scr, staging,
			server.WithLogger(e.logger),
			server.WithMaxUploadBytes(sc.MaxUploadBytes))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hs := &http.Server{
			Addr:              sc.Addr,
			ReadTimeout:       sc.ReadTimeoutDuration(),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      sc.WriteTimeoutDuration(),
			IdleTimeout:       60 * time.Second,
		}
		e.logger.Info("starting screening service",
			"addr", sc.Addr,
			"staging_dir", staging.Root(),
			"max_upload", cli.FormatBytes(sc.MaxUploadBytes))
		return srv.Serve(ctx, hs, serveDrain)
	},
}

func init() {
	addArtifactFlags(serveCmd)
	addAnalysisFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveStagingDir, "staging-dir", "", "upload staging directory (overrides config)")
	serveCmd.Flags().DurationVar(&serveDrain, "drain", 15*time.Second, "how long to wait for in-flight requests on shutdown")
	rootCmd.AddCommand(serveCmd)
}
