package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VeltarosLabs/electorium/internal/ballot"
	"github.com/VeltarosLabs/electorium/internal/election"
	"github.com/VeltarosLabs/electorium/internal/introspect"
	"github.com/VeltarosLabs/electorium/internal/logging"
)

var (
	winnerColor   = color.New(color.FgGreen, color.Bold)
	noWinnerColor = color.New(color.FgYellow, color.Bold)
	scoreColor    = color.New(color.FgCyan)
)

func newTallyCmd(a *app) *cobra.Command {
	var verbose, watch bool
	cmd := &cobra.Command{
		Use:   "tally FILE",
		Short: "Count a ballot file and print the winner",
		Long: `Count a YAML or JSON ballot file:

  votes:
    - voter: Alice
      voteFor: Bob
      candidate: true
    - voter: shareholder-7
      voteFor: Alice
      votes: 250`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()
			var is *introspect.Introspector
			if verbose {
				is = introspect.NewLogging(logging.Verbose(cmd.ErrOrStderr()))
			}
			if err := tally(out, path, is); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.log.Info("watching ballot file", zap.String("path", path))
			return ballot.Watch(ctx, path, ballot.DefaultDebounce, func() {
				fmt.Fprintln(out)
				if err := tally(out, path, is); err != nil {
					a.log.Warn("tally failed", zap.String("path", path), zap.Error(err))
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every counting decision to stderr")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "recount whenever the file changes")
	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func tally(w io.Writer, path string, is *introspect.Introspector) error {
	votes, err := ballot.Load(path)
	if err != nil {
		return err
	}
	c := election.New(votes, is)
	win, ok := c.FindWinner()
	if ok {
		score, _ := c.Score(win)
		winnerColor.Fprintf(w, "winner: %s", win.VoterID)
		fmt.Fprintf(w, " (%d votes)\n", score)
	} else {
		noWinnerColor.Fprintln(w, "no winner")
	}
	for i, s := range c.Ranking() {
		fmt.Fprintf(w, "%3d. %-24s ", i+1, s.Vote.VoterID)
		scoreColor.Fprintf(w, "%d", s.Score)
		fmt.Fprintln(w)
	}
	return nil
}
