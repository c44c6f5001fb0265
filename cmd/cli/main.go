package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"moviehub/internal/logging"
)

const defaultBaseURL = "http://localhost:8080"

type rootOptions struct {
	BaseURL   string
	TokenPath string
}

func (o *rootOptions) client() *apiClient {
	return newAPIClient(o.BaseURL, o.TokenPath)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "moviehub",
		Short:         "Operator and transport tooling for the moviehub API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "api", defaultBaseURL, "API base URL")
	cmd.PersistentFlags().StringVar(&opts.TokenPath, "token-file", defaultTokenPath(), "saved bearer token path")

	cmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newTokenCommand(opts),
		newHashPasswordCommand(),
		newCatalogCommand(opts),
		newQueryCommand(opts),
		newRetractCommand(opts),
		newSuggestCommand(opts),
		newTopCommand(opts),
		newRecommendCommand(opts),
		newMissingCommand(opts),
		newWatchCommand(opts),
	)
	return cmd
}

func main() {
	logging.Init(logging.Config{Level: "info", Format: "console"})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
