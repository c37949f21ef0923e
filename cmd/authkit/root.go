package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	backend    string
	logLevel   string
	logFormat  string
	redisAddr  string
	url        string
	apiKey     string
	locale     string
}

// NewRootCmd creates the root command for the authkit CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "authkit",
		Short: "authkit - account flows against a hosted auth backend",
		Long: `authkit runs the login, signup, password and profile flows of the
authkit client against either the hosted REST backend or an in-memory
backend seeded from the config file.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file path (YAML)")
	pf.StringVar(&opts.backend, "backend", backendMemory, "backend: memory or rest")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the shared rate gate and markers")
	pf.StringVar(&opts.url, "url", "", "REST backend project URL")
	pf.StringVar(&opts.apiKey, "api-key", "", "REST backend public API key")
	pf.StringVar(&opts.locale, "locale", "en", "message locale: en or vi")

	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newSignupCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newLoadtestCmd(opts))

	return cmd
}

// load reads the effective config for cmd.
func (o *rootOptions) load(cmd *cobra.Command) (appConfig, error) {
	return loadConfig(o.configFile, cmd.Flags())
}
