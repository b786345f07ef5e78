package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/auth"
)

type userCreateOptions struct {
	name     string
	email    string
	password string
}

// NewUserCommand manages accounts.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	opts := &userCreateOptions{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.auth.Register(cmd.Context(), auth.RegisterInput{
				Name:     opts.name,
				Email:    opts.email,
				Password: opts.password,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "create user", err)
			}
			return newFormatter(rootOpts, cmd).Success(
				fmt.Sprintf("created user %s <%s> id=%s", sess.User.Name, sess.User.Email, sess.User.ID),
				map[string]any{"id": sess.User.ID, "name": sess.User.Name, "email": sess.User.Email},
			)
		},
	}
	create.Flags().StringVar(&opts.name, "name", "", "display name")
	create.Flags().StringVar(&opts.email, "email", "", "login e-mail")
	create.Flags().StringVar(&opts.password, "password", "", "initial password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

// NewTokenCommand issues session tokens without a password, for scripts
// and support.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue session tokens",
	}

	var email string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.auth.IssueToken(cmd.Context(), email)
			if err != nil {
				return WrapExitError(ExitFailure, "issue token", err)
			}
			return newFormatter(rootOpts, cmd).Success(sess.Token, map[string]any{
				"token":     sess.Token,
				"expiresAt": sess.ExpiresAt.UTC().Format(time.RFC3339),
				"userId":    sess.User.ID,
			})
		},
	}
	issue.Flags().StringVar(&email, "email", "", "account e-mail")
	_ = issue.MarkFlagRequired("email")

	cmd.AddCommand(issue)
	return cmd
}
