package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authkit"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigLintCmd(opts))
	return cmd
}

func newConfigLintCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate the config and report risky settings",
		Long: `Load and validate the configuration, then list findings about
settings that are legal but risky. With --strict any warn-level finding
fails the command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			findings := cfg.Client.Lint()
			if len(findings) == 0 {
				cmd.Println("no findings")
				return nil
			}
			for _, w := range findings {
				cmd.Printf("%-5s %-32s %s\n", w.Severity, w.Code, w.Message)
			}
			if warns := findings.AtLeast(authkit.LintWarn); strict && len(warns) > 0 {
				return oops.Code("config_lint").With("codes", warns.Codes()).Errorf("%d warn-level findings", len(warns))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warn-level findings")
	return cmd
}
