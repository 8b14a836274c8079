package main

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pavanmanishd/netbuf/arena"
	"github.com/pavanmanishd/netbuf/buf"
	"github.com/spf13/cobra"
)

var (
	sendBufsNum  int
	sendBufsSize int
	sendLimit    int64
	sendInMemory bool
	sendMmap     bool
	sendStats    bool
)

func init() {
	cmd := newSendCmd()
	cmd.Flags().IntVar(&sendBufsNum, "bufs-num", 4, "Number of coalescing buffers")
	cmd.Flags().IntVar(&sendBufsSize, "bufs-size", 32*1024, "Size of each coalescing buffer")
	cmd.Flags().Int64Var(&sendLimit, "limit", 0, "Bytes offered to the writer per call (0 = no limit)")
	cmd.Flags().BoolVar(&sendInMemory, "in-memory", false, "Copy file data into memory buffers")
	cmd.Flags().BoolVar(&sendMmap, "mmap", false, "Map files instead of describing file spans")
	cmd.Flags().BoolVar(&sendStats, "stats", false, "Print arena statistics to stderr")
	rootCmd.AddCommand(cmd)
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <file>...",
		Short: "Stream files to stdout through the output chain",
		Long: `The send command describes each file as a buffer, runs the buffers
through the output chain and drains them with a chain writer.

Example:
  chainctl send index.html
  chainctl send --in-memory --bufs-num 2 --bufs-size 4096 a.txt b.txt
  chainctl send --limit 8192 --stats big.bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
}

func runSend(stdout, stderr io.Writer, paths []string) error {
	a, err := newArena()
	if err != nil {
		return err
	}
	defer a.Destroy()

	in, err := fileChain(a, paths)
	if err != nil {
		return err
	}

	w := buf.NewChainWriter(a, buf.WriterTransport{W: stdout}, sendLimit)
	ctx := &buf.OutputChain{
		Arena:        a,
		Bufs:         buf.Bufs{Num: sendBufsNum, Size: sendBufsSize},
		Tag:          "chainctl",
		NeedInMemory: sendInMemory,
		Filter:       w.Write,
	}

	err = ctx.Output(in)
	for errors.Is(err, buf.ErrAgain) {
		// a writer never blocks, so ErrAgain only means the per-call limit hit
		err = ctx.Output(nil)
	}
	if err != nil {
		return err
	}

	if sendStats {
		printMetrics(stderr, a.Metrics())
	}
	return nil
}

// fileChain opens every path, registers it for closing with the arena and
// chains one buffer per file. The last buffer carries LastBuf.
func fileChain(a *arena.Arena, paths []string) (*buf.Chain, error) {
	var head *buf.Chain
	ll := &head
	var b *buf.Buf

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		if _, err := a.AddFileCleanup(f, false); err != nil {
			f.Close()
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", path)
		}
		if info.Size() == 0 {
			continue
		}

		if sendMmap {
			b, err = buf.MapFile(a, f, 0, info.Size())
		} else {
			b, err = buf.NewFileBuf(a, f, 0, info.Size())
		}
		if err != nil {
			return nil, err
		}

		cl, err := buf.AllocChainLink(a)
		if err != nil {
			return nil, err
		}
		cl.Buf = b
		*ll = cl
		ll = &cl.Next
	}

	if b == nil {
		special, err := buf.NewSpecial(a, buf.LastBuf)
		if err != nil {
			return nil, err
		}
		b = special
		cl, err := buf.AllocChainLink(a)
		if err != nil {
			return nil, err
		}
		cl.Buf = b
		*ll = cl
	}
	b.Flags |= buf.LastBuf
	return head, nil
}
