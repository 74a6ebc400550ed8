package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/imagedata-s3/internal/filetransport"
	"github.com/yourorg/imagedata-s3/internal/logging"
	znmetrics "github.com/yourorg/imagedata-s3/internal/metrics"
	"github.com/yourorg/imagedata-s3/internal/s3transport"
	"github.com/yourorg/imagedata-s3/internal/transport"
)

var (
	version = "dev"

	username    string
	password    string
	region      string
	secure      bool
	tmpDir      string
	logLevel    string
	metricsAddr string

	logger   = zap.NewNop()
	registry *transport.Registry
)

var rootCmd = &cobra.Command{
	Use:     "imagedata-s3",
	Version: version,
	Short:   "Move image archives between local files and S3-compatible storage",
	Long: `imagedata-s3 - copy and inspect image archives through the imagedata transports.

Locators:
  s3://[access_key:secret_key@]host[:port]/bucket[/prefix]/object.zip
  file:///absolute/path/object.zip

Credentials embedded in an s3 locator take precedence over --username/--password.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger = logging.New(logLevel)
		registry = newRegistry(logger)
		if metricsAddr != "" {
			znmetrics.Init()
			go func() {
				if err := znmetrics.Serve(metricsAddr); err != nil {
					logger.Warn("metrics server stopped", zap.Error(err))
				}
			}()
		}
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&username, "username", "u", getenv("IMAGEDATA_S3_USERNAME", ""), "access key (env: IMAGEDATA_S3_USERNAME)")
	pf.StringVarP(&password, "password", "p", getenv("IMAGEDATA_S3_PASSWORD", ""), "secret key (env: IMAGEDATA_S3_PASSWORD)")
	pf.StringVar(&region, "region", getenv("IMAGEDATA_S3_REGION", ""), "bucket region (env: IMAGEDATA_S3_REGION)")
	pf.BoolVar(&secure, "secure", getenv("IMAGEDATA_S3_SECURE", "") == "true", "use https (env: IMAGEDATA_S3_SECURE)")
	pf.StringVar(&tmpDir, "tmpdir", getenv("IMAGEDATA_S3_TMPDIR", ""), "parent directory for staging (env: IMAGEDATA_S3_TMPDIR)")
	pf.StringVar(&logLevel, "log-level", getenv("LOG_LEVEL", "info"), "debug, info, warn or error (env: LOG_LEVEL)")
	pf.StringVar(&metricsAddr, "metrics-addr", znmetrics.AddrFromEnv(), "serve /metrics on this address while running (env: METRICS_ADDR)")

	rootCmd.AddCommand(putCmd, getCmd, lsCmd, statCmd, existsCmd, pluginsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// newRegistry wires every transport this binary ships with.
func newRegistry(log *zap.Logger) *transport.Registry {
	r := transport.NewRegistry()
	r.Register(s3transport.Plugin, s3transport.Factory(s3transport.WithLogger(log)))
	r.Register(filetransport.Plugin, filetransport.Factory(log))
	return r
}

// options builds the host options mapping from flags; empty values are left
// out so transport defaults apply.
func options() transport.Options {
	o := transport.Options{}
	set := func(k, v string) {
		if v != "" {
			o[k] = v
		}
	}
	set("username", username)
	set("password", password)
	set("region", region)
	set("tmpdir", tmpDir)
	if secure {
		o["secure"] = "true"
	}
	return o
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
