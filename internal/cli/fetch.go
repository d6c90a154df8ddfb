package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/navikt/dp-datalaster-inntekt/internal/inntekt"
	"github.com/navikt/dp-datalaster-inntekt/internal/packet"
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
)

func newFetchCommand(opts *options) *cobra.Command {
	var inntektsID string

	cmd := &cobra.Command{
		Use:   "fetch [aktørId vedtakId beregningsDato]",
		Short: "Fetch an income record from dp-inntekt-api",
		Long: `Fetch the classified income record for a subject, decision and calculation
date, or a stored record by its id.

Examples:
  datalaster fetch 12345 123 2019-01-25
  datalaster fetch --id 01D6V5QCNYRRMY42WZHDF9CK3Z -o yaml`,
		Args: func(cmd *cobra.Command, args []string) error {
			if inntektsID != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newInntektClient(opts.cfg)

			var (
				rec *inntekt.Inntekt
				err error
			)
			if inntektsID != "" {
				rec, err = client.FetchByID(cmd.Context(), inntektsID)
			} else {
				vedtakID, perr := strconv.ParseInt(args[1], 10, 64)
				if perr != nil {
					return fmt.Errorf("vedtakId must be an integer: %w", perr)
				}
				dato, perr := time.Parse(packet.DateLayout, args[2])
				if perr != nil {
					return fmt.Errorf("beregningsDato must be YYYY-MM-DD: %w", perr)
				}
				rec, err = client.Fetch(cmd.Context(), args[0], vedtakID, dato)
			}
			if err != nil {
				if pr, ok := problem.From(err); ok {
					opts.printer.Error("%s (%s, status %d)", pr.Title, pr.Type, pr.StatusCode())
				}
				return err
			}

			return printInntekt(opts.printer, rec)
		},
	}

	cmd.Flags().StringVar(&inntektsID, "id", "", "fetch a stored record by inntektsId")
	return cmd
}

func printInntekt(p *Printer, rec *inntekt.Inntekt) error {
	if p.Structured() {
		return p.Encode(rec)
	}

	p.Info("inntektsId: %s", rec.InntektsID)
	if rec.SisteAvsluttendeKalenderManed != nil {
		p.Info("sisteAvsluttendeKalenderMåned: %s", rec.SisteAvsluttendeKalenderManed)
	}

	t := NewTable("MONTH", "CLASS", "AMOUNT")
	for _, m := range rec.ByMonth() {
		for _, k := range m.KlassifiserteInntekter {
			t.AddRow(m.ArManed.String(), string(k.InntektKlasse), k.Belop.String())
		}
	}
	p.Render(t)
	p.Info("total: %s", rec.Total().FloatString(2))
	return nil
}
