package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	abandonedRetention time.Duration
	bind               string
	connBurst          int
	connRate           float64
	port               int
	prefix             string
	profile            bool
	redisAddr          string
	redisDB            int
	redisPassword      string
	sweepInterval      time.Duration
	tlsCert            string
	tlsKey             string
	tokenPrefix        string
	verbose            bool
	version            bool
	waitingTimeout     time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.connRate <= 0 || c.connBurst < 1 {
		return errors.New("--conn-rate and --conn-burst must be positive")
	}
	if c.waitingTimeout <= 0 || c.abandonedRetention <= 0 || c.sweepInterval <= 0 {
		return errors.New("timeouts and intervals must be positive")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// newLogger builds the process-wide logger. Verbose mode switches to the
// development encoder with debug level enabled.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MATCHBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "matchbox",
		Short:         "A real-time two-player tic-tac-toe service with rooms, ELO ratings, and chat.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.DurationVar(&cfg.abandonedRetention, "abandoned-retention", 24*time.Hour, "time before abandoned matches are purged from the store (env: MATCHBOX_ABANDONED_RETENTION)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MATCHBOX_BIND)")
	fs.IntVar(&cfg.connBurst, "conn-burst", 5, "burst size for per-IP websocket connection limiting (env: MATCHBOX_CONN_BURST)")
	fs.Float64Var(&cfg.connRate, "conn-rate", 5.0/60.0, "per-IP websocket connection attempts per second (env: MATCHBOX_CONN_RATE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MATCHBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MATCHBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MATCHBOX_PROFILE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the durable store; empty runs on the in-memory store (env: MATCHBOX_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: MATCHBOX_REDIS_DB)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: MATCHBOX_REDIS_PASSWORD)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", 10*time.Minute, "how often the abandonment sweeper runs (env: MATCHBOX_SWEEP_INTERVAL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MATCHBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MATCHBOX_TLS_KEY)")
	fs.StringVar(&cfg.tokenPrefix, "token-prefix", "session:", "redis key prefix for session tokens (env: MATCHBOX_TOKEN_PREFIX)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: MATCHBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MATCHBOX_VERSION)")
	fs.DurationVar(&cfg.waitingTimeout, "waiting-timeout", time.Hour, "time before a match still waiting for an opponent is abandoned (env: MATCHBOX_WAITING_TIMEOUT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("matchbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
