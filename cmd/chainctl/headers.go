package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/header"
	"github.com/spf13/cobra"
)

var (
	headersGet   []string
	headersCap   int
	headersStats bool
)

func init() {
	cmd := newHeadersCmd()
	cmd.Flags().StringArrayVar(&headersGet, "get", nil, "Print only fields with this name (repeatable)")
	cmd.Flags().IntVar(&headersCap, "cap", header.DefaultCap, "Entries per list segment")
	cmd.Flags().BoolVar(&headersStats, "stats", false, "Print arena statistics to stderr")
	rootCmd.AddCommand(cmd)
}

func newHeadersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "headers [file]",
		Short: "Parse a header block into a header table",
		Long: `The headers command reads "Name: value" lines until the first empty
line, stores them in a header table and prints them back. Without a file it
reads stdin.

Example:
  chainctl headers request.txt
  chainctl headers --get host --get cookie < request.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrapf(err, "open %s", args[0])
				}
				defer f.Close()
				r = f
			}
			return runHeaders(r, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runHeaders(r io.Reader, stdout, stderr io.Writer) error {
	a, err := newArena()
	if err != nil {
		return err
	}
	defer a.Destroy()

	t, err := header.NewTable(a, headersCap)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimRight(sc.Bytes(), "\r")
		if len(text) == 0 {
			break
		}
		key, value, ok := bytes.Cut(text, []byte(":"))
		if !ok || len(key) == 0 {
			return errors.Newf("line %d: malformed header %q", line, text)
		}
		if _, err := t.Add(bytes.TrimSpace(key), bytes.TrimSpace(value)); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read headers")
	}

	if len(headersGet) == 0 {
		for e := range t.All() {
			fmt.Fprintf(stdout, "%s: %s\n", e.Key, e.Value)
		}
	} else {
		for _, name := range headersGet {
			for e := range t.Values(name) {
				fmt.Fprintf(stdout, "%s: %s\n", e.Key, e.Value)
			}
		}
	}

	if headersStats {
		fmt.Fprintf(stderr, "fields: %d\n", t.Len())
		printMetrics(stderr, a.Metrics())
	}
	return nil
}
