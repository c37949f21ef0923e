package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"sync"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authkit"
)

// printResult writes res to the command output and turns a failed result
// into an error carrying its code.
func printResult(cmd *cobra.Command, res authkit.Result, jsonOutput bool) error {
	if jsonOutput {
		out := struct {
			Success bool                 `json:"success"`
			Message string               `json:"message"`
			Error   authkit.ErrorCode    `json:"error,omitempty"`
			User    *authkit.UserProfile `json:"user,omitempty"`
		}{res.Success, res.Message, res.Error, res.User}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return oops.Wrapf(err, "encode result")
		}
	} else {
		cmd.Println(res.Message)
		if res.User != nil {
			cmd.Printf("  id:       %s\n  email:    %s\n  username: %s\n  role:     %s\n",
				res.User.ID, res.User.Email, res.User.Username, res.User.Role)
		}
	}
	return resultErr(res)
}

type loginConfig struct {
	email      string
	password   string
	watch      bool
	jsonOutput bool
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the profile",
		Long: `Sign in with email and password and print the account profile.
With --watch the session stays open and auth state changes are printed
until the process is interrupted or the session is lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().BoolVar(&cfg.watch, "watch", false, "keep the session open and report changes")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *rootOptions, cfg *loginConfig) error {
	app, err := opts.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, cleanup, err := app.newClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res := client.Login(ctx, cfg.email, cfg.password)
	if err := printResult(cmd, res, cfg.jsonOutput); err != nil || !cfg.watch {
		return err
	}

	return watchSession(ctx, cmd, client)
}

// watchSession blocks until ctx is cancelled, a signal arrives or the
// session is lost, then signs out.
func watchSession(ctx context.Context, cmd *cobra.Command, client *authkit.Client) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lost := make(chan struct{})
	var once sync.Once
	unsubscribe := client.OnAuthStateChange(func(p *authkit.UserProfile) {
		if p == nil {
			once.Do(func() { close(lost) })
			return
		}
		cmd.Printf("session: %s (%s)\n", p.Email, p.Username)
	})
	defer unsubscribe()

	select {
	case <-lost:
		cmd.Println("session lost")
		return nil
	case <-ctx.Done():
	}

	res := client.Logout(context.Background())
	cmd.Println(res.Message)
	return nil
}

type signupConfig struct {
	authkit.SignupRequest
	jsonOutput bool
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	cfg := &signupConfig{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account with email, password and username. The new
account is not signed in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.load(cmd)
			if err != nil {
				return err
			}
			client, cleanup, err := app.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return printResult(cmd, client.Signup(cmd.Context(), cfg.SignupRequest), cfg.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&cfg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.Password, "password", "", "account password")
	cmd.Flags().StringVar(&cfg.Username, "username", "", "username")
	cmd.Flags().StringVar(&cfg.Name, "name", "", "display name (defaults to the username)")
	cmd.Flags().StringVar(&cfg.PhoneNumber, "phone", "", "phone number")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output as JSON")

	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.load(cmd)
			if err != nil {
				return err
			}
			client, cleanup, err := app.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return printResult(cmd, client.RequestPasswordReset(cmd.Context(), email), false)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}
