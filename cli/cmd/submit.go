package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/relay/cli/internal/client"
	"github.com/telhawk-systems/relay/cli/internal/config"
	"github.com/telhawk-systems/relay/cli/pkg/output"
)

func newSubmitCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post one message to the intake service",
		Long: `Post one submission to the intake service's /submit endpoint and report
the redirect it answers with. Intake never reports whether the message was
stored, so a redirect only means the submission was accepted.`,
		Example: `  relayctl submit --username alice --message "hello"
  relayctl submit -u bob -m "hi" --encoding json --intake-url http://intake:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			message, _ := cmd.Flags().GetString("message")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			encoding := stringFlag(cmd, "encoding", cfg.Encoding)
			intakeURL := stringFlag(cmd, "intake-url", cfg.IntakeURL)
			if timeout <= 0 {
				timeout = cfg.Timeout
			}

			res, err := client.NewIntakeClient(intakeURL, timeout).Submit(cmd.Context(), encoding, username, message)
			if err != nil {
				return fmt.Errorf("failed to submit: %w", err)
			}
			if !res.Redirected() {
				return fmt.Errorf("intake answered %d, expected 302", res.StatusCode)
			}

			output.Success("Submitted (%s), redirected to %s", encoding, res.Location)
			if res.RequestID != "" {
				output.Info("Request ID: %s", res.RequestID)
			}
			return nil
		},
	}

	cmd.Flags().StringP("username", "u", "", "submitter name (empty is stored as Anonymous)")
	cmd.Flags().StringP("message", "m", "", "message text")
	cmd.Flags().String("encoding", "", "body encoding: form, json, raw (default from config)")
	cmd.Flags().String("intake-url", "", "intake service URL (default from config)")
	cmd.Flags().Duration("timeout", 0, "request timeout (default from config)")

	return cmd
}
