package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/relay/cli/internal/config"
	"github.com/telhawk-systems/relay/cli/pkg/output"
	"github.com/telhawk-systems/relay/common/models"
	"github.com/telhawk-systems/relay/common/wire"
	"github.com/telhawk-systems/relay/intake/pkg/forwarder"
)

func newForwardCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Send one payload straight to the ingestion listener",
		Long: `Send one record to the ingestion service over TCP, bypassing intake.
The listener never acknowledges, so success means the payload was written
and the connection closed cleanly.`,
		Example: `  relayctl forward --username alice --message "hello"
  relayctl forward -m "hi" --addr ingestion:5000 --framing length`,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			message, _ := cmd.Flags().GetString("message")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			addr := stringFlag(cmd, "addr", cfg.IngestionAddr)
			if timeout <= 0 {
				timeout = cfg.Timeout
			}

			framing, err := wire.ParseFraming(stringFlag(cmd, "framing", cfg.Framing))
			if err != nil {
				return err
			}

			fwd := forwarder.New(forwarder.Config{
				Addr:    addr,
				Timeout: timeout,
				Framing: framing,
			})

			rec := models.NewRecord(username, message)
			if err := fwd.Forward(cmd.Context(), rec); err != nil {
				return fmt.Errorf("failed to forward: %w", err)
			}

			output.Success("Forwarded %s's message to %s (%s framing)", rec.Username(), addr, framing)
			return nil
		},
	}

	cmd.Flags().StringP("username", "u", "", "submitter name (empty is stored as Anonymous)")
	cmd.Flags().StringP("message", "m", "", "message text")
	cmd.Flags().String("addr", "", "ingestion listener address (default from config)")
	cmd.Flags().String("framing", "", "wire framing: close, length (default from config)")
	cmd.Flags().Duration("timeout", 0, "dial and write timeout (default from config)")

	return cmd
}
