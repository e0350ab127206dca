package commands

import (
	"fmt"

	"github.com/geocoder89/favfilms/internal/app"
	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/db"
	"github.com/geocoder89/favfilms/internal/observability"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var (
		count    int
		seed     int64
		name     string
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Args:  cobra.NoArgs,
		Short: "Insert demo films and optionally a demo user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (email == "") != (password == "") {
				return fmt.Errorf("--user-email and --user-password go together")
			}

			cfg := config.Load()
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, observability.NewLogger(cfg.Env), app.WithoutTracing())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if email != "" {
				u, err := db.EnsureUser(ctx, a.Users, name, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user ready: %s <%s>\n", u.Name, u.Email)
			}

			n, err := a.SeedFilms(ctx, count, seed)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d films\n", n)
			return err
		},
	}

	cmd.Flags().IntVar(&count, "count", 100, "number of films to insert")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for ratings (0 = time based)")
	cmd.Flags().StringVar(&name, "user-name", "Demo User", "name of the demo user")
	cmd.Flags().StringVar(&email, "user-email", "", "email of the demo user to ensure")
	cmd.Flags().StringVar(&password, "user-password", "", "password of the demo user")

	return cmd
}
