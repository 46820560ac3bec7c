package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	v   *viper.Viper
	in  io.Reader
	out io.Writer
}

func (a *app) client() *apiClient {
	return newAPIClient(a.v.GetString("url"), a.v.GetDuration("timeout"))
}

func (a *app) jsonOutput() bool {
	return a.v.GetString("output") == "json"
}

// newViper reads settings from flags, ENVELOPELEDGER_* variables and an
// optional TOML file, in that order of precedence.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("url", "http://localhost:8080")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("output", "table")

	v.SetConfigType("toml")
	v.SetEnvPrefix("ENVELOPELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func readConfig(v *viper.Viper, path string) error {
	if path == "" {
		path = os.Getenv("ENVELOPELEDGER_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(filepath.Join(home, ".config", "envelopeledger"))
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		// The default file is optional, but a broken one is reported.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read default config: %w", err)
	}
	return nil
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{v: newViper(), in: in, out: out}
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "envelopes",
		Short:         "Envelope ledger CLI",
		Long:          `A command line interface for the envelope ledger reconciliation API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(a.v, configPath); err != nil {
				return err
			}
			switch a.v.GetString("output") {
			case "table", "json":
				return nil
			default:
				return fmt.Errorf("unknown output format %q", a.v.GetString("output"))
			}
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a TOML config file")
	flags.String("url", "http://localhost:8080", "Base URL of the envelope ledger API")
	flags.Duration("timeout", 10*time.Second, "Request timeout")
	flags.StringP("output", "o", "table", "Output format: table or json")
	for _, name := range []string{"url", "timeout", "output"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		booksCmd(a),
		reconcileCmd(a),
		transferCmd(a),
		balancesCmd(a),
		rulesCmd(a),
	)
	return rootCmd
}
