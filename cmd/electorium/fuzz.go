package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VeltarosLabs/electorium/internal/campaign"
	"github.com/VeltarosLabs/electorium/internal/corpus"
	"github.com/VeltarosLabs/electorium/internal/crypto"
	"github.com/VeltarosLabs/electorium/internal/fuzz"
	"github.com/VeltarosLabs/electorium/internal/logging"
	"github.com/VeltarosLabs/electorium/internal/names"
)

func newFuzzCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Run the fuzz harness by hand or as a random campaign",
	}
	cmd.AddCommand(newFuzzRunCmd(a), newFuzzCampaignCmd(a), newFuzzFindingsCmd(a))
	return cmd
}

func (a *app) harness(format string, verbose bool, w io.Writer) (*fuzz.Harness, *names.Table, error) {
	tbl, err := a.nameTable()
	if err != nil {
		return nil, nil, err
	}
	cfg := fuzz.Config{Verbose: verbose, Format: format, Names: tbl}
	if verbose {
		cfg.Logger = logging.Verbose(w)
	}
	h, err := fuzz.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return h, tbl, nil
}

func newFuzzRunCmd(a *app) *cobra.Command {
	var (
		manual bool
		hexIn  string
		format string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "run [FILE|-]",
		Short: "Run the harness once over a file, stdin or a hex string",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args, hexIn)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Fuzz.Format
			}
			out := cmd.OutOrStdout()
			h, tbl, err := a.harness(format, manual, out)
			if err != nil {
				return err
			}
			defer h.Close()

			if save {
				store, err := a.store()
				if err != nil {
					return err
				}
				dir, err := store.CorpusDir()
				if err != nil {
					return err
				}
				name, err := corpus.SaveSeed(dir, input)
				if err != nil {
					return err
				}
				a.log.Info("seed saved", zap.String("path", filepath.Join(dir, name)))
			}

			st, err := h.Check(input)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, describeStatus(st, h.Format(), tbl))
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&manual, "manual", "m", false, "print ballots, scores and every counting decision")
	f.StringVar(&hexIn, "hex", "", "input as a hex string instead of a file")
	f.StringVar(&format, "format", fuzz.FormatNamed, "input format: named|wide|compact")
	f.BoolVar(&save, "save", false, "also store the input in the seed corpus")
	return cmd
}

func readInput(cmd *cobra.Command, args []string, hexIn string) ([]byte, error) {
	switch {
	case hexIn != "" && len(args) > 0:
		return nil, errors.New("give either FILE or --hex, not both")
	case hexIn != "":
		return crypto.DecodeHex(hexIn)
	case len(args) == 0 || args[0] == "-":
		return io.ReadAll(cmd.InOrStdin())
	default:
		return os.ReadFile(filepath.Clean(args[0]))
	}
}

func describeStatus(st int16, format string, tbl *names.Table) string {
	switch {
	case st == fuzz.StatusNoWinner:
		return fmt.Sprintf("%d (no winner)", st)
	case st == fuzz.StatusUnrepresentable:
		return fmt.Sprintf("%d (winner id does not fit)", st)
	case format == fuzz.FormatNamed && st < names.Size:
		return fmt.Sprintf("%d (%s)", st, tbl.Name(byte(st)))
	default:
		return fmt.Sprint(st)
	}
}

func newFuzzCampaignCmd(a *app) *cobra.Command {
	var (
		workers, iterations, maxRecords int
		seed                            uint64
		format                          string
		duration                        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Check random inputs in parallel and store the ones that fail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc := a.cfg.Fuzz
			flags := cmd.Flags()
			if flags.Changed("workers") {
				fc.Workers = workers
			}
			if flags.Changed("iterations") {
				fc.Iterations = iterations
			}
			if flags.Changed("max-records") {
				fc.MaxRecords = maxRecords
			}
			if flags.Changed("seed") {
				fc.Seed = seed
			}
			if flags.Changed("format") {
				fc.Format = format
			}

			store, err := a.store()
			if err != nil {
				return err
			}
			corpusDir, err := store.CorpusDir()
			if err != nil {
				return err
			}
			findingsDir, err := store.FindingsDir()
			if err != nil {
				return err
			}
			seeds, err := corpus.LoadSeeds(corpusDir)
			if err != nil {
				return err
			}
			inputs := make([][]byte, 0, len(seeds))
			for _, s := range seeds {
				inputs = append(inputs, s.Input)
			}

			h, _, err := a.harness(fc.Format, false, nil)
			if err != nil {
				return err
			}
			defer h.Close()

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			a.log.Info("campaign starting",
				zap.String("format", fc.Format),
				zap.Int("seeds", len(inputs)),
				zap.Int("workers", fc.Workers),
				zap.Int("iterations", fc.Iterations),
				zap.Uint64("seed", fc.Seed))
			st, err := campaign.Run(ctx, campaign.Config{
				Workers:    fc.Workers,
				Iterations: fc.Iterations,
				MaxRecords: fc.MaxRecords,
				Seed:       fc.Seed,
			}, h, inputs, corpus.NewFindings(findingsDir), a.log)
			if err != nil && ctx.Err() == nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "runs: %d  winners: %d  no winner: %d  unrepresentable: %d  findings: %d  (%s)\n",
				st.Runs, st.Winners, st.NoWinner, st.Unrepresentable, st.Findings, st.Elapsed.Round(time.Millisecond))
			if st.Findings > 0 {
				noWinnerColor.Fprintf(out, "findings stored in %s\n", findingsDir)
				return fmt.Errorf("%d failing inputs", st.Findings)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&workers, "workers", "j", 0, "parallel workers (default from config)")
	f.IntVarP(&iterations, "iterations", "n", 0, "random inputs to check (default from config)")
	f.IntVar(&maxRecords, "max-records", 0, "maximum ballots per random input (default from config)")
	f.Uint64Var(&seed, "seed", 0, "random seed (default from config)")
	f.StringVar(&format, "format", "", "input format (default from config)")
	f.DurationVar(&duration, "duration", 0, "stop after this long")
	return cmd
}

func newFuzzFindingsCmd(a *app) *cobra.Command {
	var showInput bool
	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List stored campaign findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			findingsDir, err := store.FindingsDir()
			if err != nil {
				return err
			}
			list, err := corpus.NewFindings(findingsDir).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no findings")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFOUND\tFORMAT\tBYTES\tERROR")
			for _, f := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.FoundAt.Format(time.RFC3339), f.Format, len(f.Input), f.Error)
				if showInput {
					fmt.Fprintf(tw, "\t\t\t\t%s\n", hex.EncodeToString(f.Input))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&showInput, "input", false, "print each input as hex")
	return cmd
}
