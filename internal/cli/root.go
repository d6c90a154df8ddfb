// Package cli implements the datalaster command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/navikt/dp-datalaster-inntekt/common/logging"
	"github.com/navikt/dp-datalaster-inntekt/internal/config"
	"github.com/navikt/dp-datalaster-inntekt/internal/enrichment"
)

// Version is set at build time.
var Version = "dev"

// options is shared by every subcommand.
type options struct {
	configPath string
	output     string
	noColor    bool

	cfg     *config.Config
	logger  *logging.Logger
	printer *Printer
}

// NewRootCommand builds the datalaster command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "datalaster",
		Short: "Income enrichment stage for dagpenger behov packets",
		Long: `datalaster reads behov packets from the partitioned behov topic, attaches the
classified income record from dp-inntekt-api and republishes them.

Besides running the stage it can fetch income records directly, seed the
topic with fake packets, inspect the dead-letter stream and flip the
feature toggle that pauses processing.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $DATALASTER_CONFIG or ./config.yaml)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", FormatTable, "output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCommand(opts),
		newFetchCommand(opts),
		newSeedCommand(opts),
		newDLQCommand(opts),
		newToggleCommand(opts),
	)

	return root
}

func (o *options) init(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	o.logger = logging.NewWithWriter(cmd.ErrOrStderr(),
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service(enrichment.StageName))
	logging.SetDefault(o.logger)

	o.printer, err = NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), o.output, !o.noColor && isTerminal(cmd))
	return err
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
