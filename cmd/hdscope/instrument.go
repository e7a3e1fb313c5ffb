package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/domain/instrument"
)

func idnCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "idn",
		Short: "Print the instrument identity and run state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withInstrument(ctx, flags, func(client *hdscope.Client) error {
				st, err := client.Instrument.Status(ctx)
				if err != nil {
					return err
				}
				state := "stopped"
				if st.Running {
					state = "running"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, st.Identity)
				fmt.Fprintf(out, "  firmware:     %s\n", st.Identity.Firmware)
				fmt.Fprintf(out, "  state:        %s\n", state)
				fmt.Fprintf(out, "  memory depth: %s\n", depthLabel(st.MemoryDepth, st.AutoDepth))
				fmt.Fprintf(out, "  channels:     %d\n", st.Channels)
				fmt.Fprintf(out, "  max chunk:    %s samples\n", humanize.Comma(int64(st.MaxChunk)))
				return nil
			})
		},
	}
}

func runCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Resume free-running acquisition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withInstrument(ctx, flags, func(client *hdscope.Client) error {
				return client.Instrument.Run(ctx)
			})
		},
	}
}

func stopCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop acquisition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withInstrument(ctx, flags, func(client *hdscope.Client) error {
				return client.Instrument.Stop(ctx)
			})
		},
	}
}

func mdepthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mdepth [depth]",
		Short: "Show or set the acquisition memory depth",
		Long: `Show the acquisition memory depth, or set it when a depth is given.

Depths are sample counts with an optional k or M suffix, e.g. 12M or 600k.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var depth instrument.MemoryDepth
			if len(args) == 1 {
				var err error
				if depth, err = instrument.ParseMemoryDepth(args[0]); err != nil {
					return err
				}
			}

			return withInstrument(ctx, flags, func(client *hdscope.Client) error {
				if depth > 0 {
					return client.Instrument.SetMemoryDepth(ctx, depth)
				}
				st, err := client.Instrument.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), depthLabel(st.MemoryDepth, st.AutoDepth))
				return nil
			})
		},
	}
}

func depthLabel(d instrument.MemoryDepth, auto bool) string {
	if auto {
		return "AUTO"
	}
	return fmt.Sprintf("%s (%s samples)", d, humanize.Comma(int64(d.Samples())))
}
