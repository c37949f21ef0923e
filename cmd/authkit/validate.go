package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/validate"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a field with the local validators",
		Long: `Run the local email, password or username validator on a value.
No backend is contacted, so username availability is not checked.`,
	}

	field := func(use, short string, check func(cfg appConfig, raw string) validate.Result) *cobra.Command {
		return &cobra.Command{
			Use:   use + " VALUE",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load(cmd)
				if err != nil {
					return err
				}
				return reportValidation(cmd, cfg.Client.Locale, check(cfg, args[0]))
			},
		}
	}

	cmd.AddCommand(field("email", "Validate an email address", func(_ appConfig, raw string) validate.Result {
		return validate.Email(raw)
	}))
	cmd.AddCommand(field("password", "Validate a password against the configured policy", func(cfg appConfig, raw string) validate.Result {
		return validate.Password(raw, cfg.Client.Password.Policy())
	}))
	cmd.AddCommand(field("username", "Validate a username's format", func(_ appConfig, raw string) validate.Result {
		return validate.UsernameLocal(raw)
	}))

	return cmd
}

func reportValidation(cmd *cobra.Command, locale authkit.Locale, res validate.Result) error {
	if res.Valid {
		cmd.Printf("valid: %s\n", res.Value)
		return nil
	}
	msg := authkit.Translate(authkit.ErrorCode(res.Reason), locale)
	cmd.Printf("invalid (%s): %s\n", res.Reason, msg)
	return oops.Code(res.Reason).Errorf("%s", msg)
}
