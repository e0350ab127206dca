package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/geocoder89/favfilms/internal/client"
	"github.com/spf13/cobra"
)

func (g *globalFlags) client() *client.Client {
	return client.New(g.apiURL, client.NewSession(client.FileStore{Path: g.tokenFile}))
}

func newSignupCommand(g *globalFlags) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Args:  cobra.NoArgs,
		Short: "Create an account and keep its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Signup(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s <%s>\n", res.User.Name, res.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLoginCommand(g *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Args:  cobra.NoArgs,
		Short: "Log in and keep the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s <%s>\n", res.User.Name, res.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newWhoamiCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Args:  cobra.NoArgs,
		Short: "Show who the held token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := g.client().Session().CurrentUser()
			if u == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (expires %s)\n", u.Name, u.Email, u.ExpiresAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
}

func newLogoutCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Args:  cobra.NoArgs,
		Short: "Forget the held token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.client().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newListCommand(g *globalFlags) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		Short: "List one page of films",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().ListFilms(cmd.Context(), page)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTYPE\tDIRECTOR\tYEAR")
			for _, e := range res.Data {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", e.ID, e.Title, e.Type, e.Director, e.YearOrTime)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "page %d, more: %t\n", res.Page, res.HasMore)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")

	return cmd
}
