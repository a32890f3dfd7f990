package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jose-engine/jose/internal/config"
	"github.com/jose-engine/jose/internal/logging"
)

// app holds the state shared by every command for one invocation.
type app struct {
	v          *viper.Viper
	configFile string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "jose",
		Short:         "Sign, verify and inspect JSON Web Signatures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	defaults := config.Default()

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./jose.yaml or $HOME/.config/jose/jose.yaml)")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	flags.String("log-format", defaults.LogFormat, "log format: json or console")
	flags.StringP("algorithm", "a", defaults.Algorithm, "JWS algorithm (\"alg\")")
	flags.String("type", defaults.Type, "JWS type (\"typ\"), empty for none")
	flags.Bool("allow-none", defaults.AllowNone, "allow the unsecured \"none\" algorithm")
	flags.StringP("key", "k", defaults.KeyFile, "key file: PEM or JWK")
	flags.String("jwks", defaults.JWKSFile, "JWK set file used for verification")
	flags.String("jwks-url", defaults.JWKSURL, "JWK set URL used for verification")
	flags.Duration("http-timeout", defaults.HTTPTimeout, "timeout for fetching a JWK set")

	for key, name := range map[string]string{
		"log_level":    "log-level",
		"log_format":   "log-format",
		"algorithm":    "algorithm",
		"type":         "type",
		"allow_none":   "allow-none",
		"key_file":     "key",
		"jwks_file":    "jwks",
		"jwks_url":     "jwks-url",
		"http_timeout": "http-timeout",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(
		newKeygenCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newInspectCmd(a),
	)

	return cmd
}

func (a *app) init(logOutput io.Writer) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Logging(), logOutput)
	if err != nil {
		return err
	}
	a.logger = logger

	a.logger.Debug("loaded config",
		zap.String("algorithm", cfg.Algorithm),
		zap.String("type", cfg.Type),
		zap.Bool("allow_none", cfg.AllowNone),
	)

	return nil
}

// readInput returns the contents of the file named by the first argument,
// or of stdin when there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
