package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func usersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard sign-in accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a sign-in account",
		Long: `Create an account that can sign in to the dashboard. The password is
read from --password or, when omitted, from IRDASH_NEW_USER_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("IRDASH_NEW_USER_PASSWORD")
			}
			return run(cmd, flags, false, func(ctx context.Context, s *session) error {
				if s.rt.Users == nil {
					return errors.New("gateway is not configured; set IRDASH_GATEWAY_URL and IRDASH_GATEWAY_KEY")
				}
				user, err := s.rt.Users.CreateUser(ctx, args[0], password)
				if err != nil {
					return err
				}
				writeln(cmd.OutOrStdout(), "created %s (%s)", user.Email, user.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&password, "password", "", "Password (at least 8 characters)")
	cmd.AddCommand(add)
	return cmd
}
