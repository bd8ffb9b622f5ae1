package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxforecast/auth"
	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/store"
)

// withAuth opens the store and the account service for fn.
func withAuth(rc *RootConfig, fn func(st store.Store, svc *auth.Service) error) error {
	return withStore(rc, func(st store.Store) error {
		svc, err := newAuth(rc.Config, st)
		if err != nil {
			return err
		}
		return fn(st, svc)
	})
}

func newUserCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create an account, sign in or show your profile",
	}
	cmd.AddCommand(newSignUpCmd(rc), newSignInCmd(rc), newProfileCmd(rc))
	return cmd
}

func printSession(cmd *cobra.Command, sess auth.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signed in as %s (%s)\n", sess.Email, sess.Role)
	fmt.Fprintf(out, "export %s=%s\n", EnvToken, sess.Token)
}

func newSignUpCmd(rc *RootConfig) *cobra.Command {
	var req auth.SignUpRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(rc, func(_ store.Store, svc *auth.Service) error {
				sess, err := svc.SignUp(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("signup: %w", err)
				}
				printSession(cmd, sess)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password, 6 to 72 characters (required)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "Full name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newSignInCmd(rc *RootConfig) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(rc, func(_ store.Store, svc *auth.Service) error {
				sess, err := svc.SignIn(cmd.Context(), email, password)
				if err != nil {
					return fmt.Errorf("signin: %w", err)
				}
				printSession(cmd, sess)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newProfileCmd(rc *RootConfig) *cobra.Command {
	var (
		token string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(rc, func(_ store.Store, svc *auth.Service) error {
				sess, err := session(svc, token)
				if err != nil {
					return err
				}
				ctx := cmd.Context()

				var u store.User
				if cmd.Flags().Changed("name") {
					u, err = svc.UpdateProfile(ctx, sess.UserID, auth.ProfileUpdate{FullName: &name})
				} else {
					u, err = svc.Profile(ctx, sess.UserID)
				}
				if err != nil {
					return fmt.Errorf("profile: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Email:   %s\n", u.Email)
				fmt.Fprintf(out, "Name:    %s\n", u.FullName)
				fmt.Fprintf(out, "Role:    %s\n", u.Role)
				fmt.Fprintf(out, "Since:   %s\n", u.CreatedAt.Format("2006-01-02"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Set your full name")
	addTokenFlag(cmd, &token)
	return cmd
}

func newCalcCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Manage saved calculations",
	}
	cmd.AddCommand(newCalcListCmd(rc), newCalcNotesCmd(rc), newCalcDeleteCmd(rc))
	return cmd
}

func newCalcListCmd(rc *RootConfig) *cobra.Command {
	var (
		token       string
		page, limit int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your saved calculations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(rc, func(st store.Store, svc *auth.Service) error {
				sess, err := session(svc, token)
				if err != nil {
					return err
				}
				p, err := st.ListCalculations(cmd.Context(), sess.UserID, page, limit)
				if err != nil {
					return fmt.Errorf("list calculations: %w", err)
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, p)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tNAME\tLOTS\tNOTES")
				for _, c := range p.Calculations {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"),
						c.Name, market.Num(c.Results["lot_size"]), c.Notes)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "page %d of %d (%d saved)\n", p.CurrentPage, p.TotalPages, p.Count)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultPageLimit, "Rows per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	addTokenFlag(cmd, &token)
	return cmd
}

func newCalcNotesCmd(rc *RootConfig) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "notes <id> <notes>",
		Short: "Replace the notes on a saved calculation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(rc, func(st store.Store, svc *auth.Service) error {
				sess, err := session(svc, token)
				if err != nil {
					return err
				}
				c, err := st.UpdateCalculationNotes(cmd.Context(), args[0], sess.UserID, args[1])
				if err != nil {
					return fmt.Errorf("update notes: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", c.ID)
				return nil
			})
		},
	}
	addTokenFlag(cmd, &token)
	return cmd
}

func newCalcDeleteCmd(rc *RootConfig) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved calculation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(rc, func(st store.Store, svc *auth.Service) error {
				sess, err := session(svc, token)
				if err != nil {
					return err
				}
				if err := st.DeleteCalculation(cmd.Context(), args[0], sess.UserID); err != nil {
					return fmt.Errorf("delete calculation: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	addTokenFlag(cmd, &token)
	return cmd
}
