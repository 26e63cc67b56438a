package token

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/common"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
)

// Output is what `token` prints. AccessToken is only filled with --show-token.
type Output struct {
	ClientEmail string    `json:"clientEmail"`
	TokenType   string    `json:"tokenType"`
	Expiry      time.Time `json:"expiry"`
	ExpiresIn   string    `json:"expiresIn"`
	AccessToken string    `json:"accessToken,omitempty"`
}

func NewCommand(flags *common.Flags) *cobra.Command {
	var showToken bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Exchange the service account key for an access token",
		Long: `Sign a JWT assertion with the configured service account key and
exchange it for a BigQuery access token.

Prints the token expiry as JSON. The token itself is only printed when
--show-token is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				return run(ctx, cmd, rt, showToken)
			})
		},
	}

	cmd.Flags().BoolVar(&showToken, "show-token", false, "Include the access token in the output")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, rt *common.Runtime, showToken bool) error {
	tok, err := rt.Tokens.AccessToken(ctx)
	if err != nil {
		rt.Logger.Error("Failed to obtain access token", logger.Error(err))
		return err
	}

	rt.Logger.Info("Access token obtained",
		logger.Time("expires_at", tok.Expiry),
	)

	out := Output{
		ClientEmail: rt.Tokens.ClientEmail(),
		TokenType:   tok.Type(),
		Expiry:      tok.Expiry.UTC(),
		ExpiresIn:   time.Until(tok.Expiry).Round(time.Second).String(),
	}
	if showToken {
		out.AccessToken = tok.AccessToken
	}
	return common.WriteJSON(cmd.OutOrStdout(), out)
}
