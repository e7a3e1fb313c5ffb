package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/domain/waveform"
	"github.com/ul-gh/hdscope/infrastructure/export"
)

// exportPaths names the optional export files of a capture.
type exportPaths struct {
	csv  string
	sr   string
	meta string
}

func (p exportPaths) any() bool {
	return p.csv != "" || p.sr != "" || p.meta != ""
}

func captureCmd(flags *globalFlags) *cobra.Command {
	var (
		channel int
		samples int
		paths   exportPaths
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Acquire a waveform from the instrument and store it",
		Long: `Acquire one channel from the instrument and store it as a capture.

The full memory depth is read unless --samples is given. A running scope is
stopped for long transfers and restarted afterwards, also when the transfer
is interrupted. The stored capture can be exported in volts as CSV, as a
sigrok session (.sr) and as a YAML metadata sidecar.`,
		Example: `  hdscope capture -r TCPIP::192.168.1.20::5555::SOCKET -c 2 --csv ch2.csv
  hdscope capture -m sim --samples 100000 --sr sim.sr --meta sim.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withInstrument(ctx, flags, func(client *hdscope.Client) error {
				return runCapture(ctx, cmd.OutOrStdout(), client, instrument.Channel(channel), samples, paths)
			})
		},
	}

	cmd.Flags().IntVarP(&channel, "channel", "c", 1, "Analog channel to read (1-4)")
	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "Record length (default: full memory depth)")
	cmd.Flags().StringVar(&paths.csv, "csv", "", "Write the samples in volts to this CSV file")
	cmd.Flags().StringVar(&paths.sr, "sr", "", "Write a sigrok session file")
	cmd.Flags().StringVar(&paths.meta, "meta", "", "Write a YAML metadata sidecar")

	return cmd
}

func runCapture(ctx context.Context, out io.Writer, client *hdscope.Client, ch instrument.Channel, samples int, paths exportPaths) error {
	start := time.Now()
	c, err := client.Acquisition.Capture(ctx, service.CaptureParams{Channel: ch, Samples: samples})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "capture %d: %s, %s samples at %s in %s\n",
		c.ID(), c.Channel(), humanize.Comma(int64(c.Samples())),
		sampleRate(c.Calibration()), time.Since(start).Round(time.Millisecond))

	if !paths.any() {
		return nil
	}
	return exportCapture(ctx, out, client, c, paths)
}

func exportCapture(ctx context.Context, out io.Writer, client *hdscope.Client, c capture.Capture, paths exportPaths) error {
	window, err := client.Captures.Samples(ctx, c.ID(), service.SampleParams{Volts: true})
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}
	cal := c.Calibration()
	values := window.Values

	if paths.csv != "" {
		if err := export.WriteFile(paths.csv, func(w io.Writer) error {
			return export.WriteCSV(w, cal, values)
		}); err != nil {
			return err
		}
		reportFile(out, paths.csv)
	}
	if paths.sr != "" {
		if err := export.WriteFile(paths.sr, func(w io.Writer) error {
			return export.WriteSigrok(w, cal.SampleRate(), export.Trace{Name: c.Channel().String(), Values: values})
		}); err != nil {
			return err
		}
		reportFile(out, paths.sr)
	}
	if paths.meta != "" {
		stats := waveform.Summarize(values)
		if err := export.WriteFile(paths.meta, func(w io.Writer) error {
			return export.WriteMetadata(w, export.NewMetadata(c, &stats))
		}); err != nil {
			return err
		}
		reportFile(out, paths.meta)
	}
	return nil
}

func reportFile(out io.Writer, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(out, "  wrote %s\n", path)
		return
	}
	fmt.Fprintf(out, "  wrote %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
}

func sampleRate(cal waveform.Calibration) string {
	rate := cal.SampleRate()
	if rate == 0 {
		return "unknown rate"
	}
	return humanize.SIWithDigits(rate, 3, "Sa/s")
}

func capturesCmd(flags *globalFlags) *cobra.Command {
	var (
		channel int
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List stored captures, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, cfg, logger, err := openClient(ctx, flags)
			if err != nil {
				return err
			}
			defer closeClient(client, logger)

			opts := []store.Option{capture.WithNewestFirst()}
			if channel != 0 {
				ch := instrument.Channel(channel)
				if !ch.Valid() {
					return fmt.Errorf("%w: %d", instrument.ErrInvalidChannel, channel)
				}
				opts = append(opts, capture.WithChannel(ch))
			}
			total, err := client.Captures.Count(ctx, opts...)
			if err != nil {
				return err
			}
			opts = append(opts, capture.WithPage(limit, offset))
			captures, err := client.Captures.Find(ctx, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printCaptures(out, captures)
			fmt.Fprintf(out, "%d of %d captures, samples in %s\n", len(captures), total, cfg.CapturesDir())
			return nil
		},
	}

	cmd.Flags().IntVarP(&channel, "channel", "c", 0, "Only list captures of this channel")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of captures to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of captures to skip")

	return cmd
}

func printCaptures(out io.Writer, captures []capture.Capture) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHANNEL\tSAMPLES\tRATE\tDURATION\tINSTRUMENT\tCREATED")
	for _, c := range captures {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID(), c.Channel(), humanize.Comma(int64(c.Samples())),
			sampleRate(c.Calibration()), c.Duration(), c.Instrument(), humanize.Time(c.CreatedAt()))
	}
	_ = tw.Flush()
}
