package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/relay/cli/internal/client"
	"github.com/telhawk-systems/relay/cli/internal/config"
	"github.com/telhawk-systems/relay/cli/pkg/output"
)

func newSeedCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Post generated submissions to the intake service",
		Long: `Generate fake usernames and messages and post them to intake one at a
time. Use --seed for a reproducible set of submissions.`,
		Example: `  relayctl seed --count 100
  relayctl seed --count 20 --encoding json --interval 50ms --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			interval, _ := cmd.Flags().GetDuration("interval")
			seed, _ := cmd.Flags().GetInt64("seed")
			encoding := stringFlag(cmd, "encoding", cfg.Encoding)
			intakeURL := stringFlag(cmd, "intake-url", cfg.IntakeURL)

			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}

			faker := gofakeit.New(seed)
			intake := client.NewIntakeClient(intakeURL, cfg.Timeout)

			output.Info("Seeding %d submissions to %s (%s)", count, intakeURL, encoding)

			start := time.Now()
			var accepted, rejected, failed int
			for i := 0; i < count; i++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				if i > 0 && interval > 0 {
					time.Sleep(interval)
				}

				res, err := intake.Submit(cmd.Context(), encoding, faker.Username(), faker.Sentence(faker.Number(3, 12)))
				switch {
				case err != nil:
					failed++
					output.Warn("submission %d failed: %v", i+1, err)
				case !res.Redirected():
					rejected++
				default:
					accepted++
				}
			}

			table := output.NewTable([]string{"ACCEPTED", "REJECTED", "FAILED", "ELAPSED"})
			table.AddRow([]string{
				strconv.Itoa(accepted),
				strconv.Itoa(rejected),
				strconv.Itoa(failed),
				time.Since(start).Round(time.Millisecond).String(),
			})
			table.Render()

			if accepted == 0 {
				return fmt.Errorf("no submissions were accepted")
			}
			output.Success("Seeded %d of %d submissions", accepted, count)
			return nil
		},
	}

	cmd.Flags().IntP("count", "n", 10, "number of submissions")
	cmd.Flags().Duration("interval", 0, "pause between submissions")
	cmd.Flags().Int64("seed", 0, "random seed (0 picks a random one)")
	cmd.Flags().String("encoding", "", "body encoding: form, json, raw (default from config)")
	cmd.Flags().String("intake-url", "", "intake service URL (default from config)")

	return cmd
}
