package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/navikt/dp-datalaster-inntekt/internal/seeder"
)

func newSeedCommand(opts *options) *cobra.Command {
	var (
		count    int
		interval time.Duration
		kinds    string
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Append fake behov packets to the topic",
		Long: `Generate behov packets with fake identifiers and append them to the
partitioned behov topic, keyed by aktørId.

Kinds: behov, incomplete, enriched, manual, failed, garbage.

Examples:
  datalaster seed --count 100
  datalaster seed --kinds behov,failed,garbage --interval 200ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kindList, err := seeder.ParseKinds(kinds)
			if err != nil {
				return err
			}

			js, err := connectJetStream(opts.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = js.Close() }()

			log, err := openLog(cmd.Context(), js, opts.cfg)
			if err != nil {
				return err
			}

			res, err := seeder.New(log, opts.logger.Logger).Run(cmd.Context(), seeder.Config{
				Count:    count,
				Interval: interval,
				Kinds:    kindList,
				Seed:     seed,
			})
			if err != nil {
				return err
			}

			if opts.printer.Structured() {
				return opts.printer.Encode(res)
			}
			opts.printer.Success("Appended %d packets to %s (%d failed)", res.Sent, log.Topic(), res.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "number of packets")
	cmd.Flags().DurationVar(&interval, "interval", 0, "pause between packets")
	cmd.Flags().StringVar(&kinds, "kinds", seeder.KindBehov, "comma-separated packet kinds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}
