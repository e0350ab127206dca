package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	apiURL    string
	tokenFile string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "favfilms",
		Short:         "Favorite films catalog: API server and command-line client",
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&g.apiURL, "api", envOr("FAVFILMS_API", "http://localhost:8080"), "base URL of the favfilms API")
	rootCmd.PersistentFlags().StringVar(&g.tokenFile, "token-file", envOr("FAVFILMS_TOKEN_FILE", defaultTokenFile()), "where the client keeps its token")

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newSignupCommand(g),
		newLoginCommand(g),
		newWhoamiCommand(g),
		newLogoutCommand(g),
		newListCommand(g),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".favfilms-token"
	}
	return filepath.Join(dir, "favfilms", "token")
}
