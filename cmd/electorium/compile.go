package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/VeltarosLabs/electorium/internal/compile"
)

func newCompileCmd(a *app) *cobra.Command {
	var asHex bool
	cmd := &cobra.Command{
		Use:   "compile [FILE]",
		Short: "Turn a text election description into a named-format fuzz input",
		Long: `Each line is "name votes voteFor". Names from the name table are
willing candidates; other names become plain voters.

  Alice 1 Bob
  Bob 1 Alice
  shareholder1 4 Alice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(filepath.Clean(args[0]))
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			tbl, err := a.nameTable()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := compile.Compile(in, &buf, tbl); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asHex {
				_, err = fmt.Fprintln(out, hex.EncodeToString(buf.Bytes()))
				return err
			}
			_, err = out.Write(buf.Bytes())
			return err
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "print the input as hex instead of raw bytes")
	return cmd
}
