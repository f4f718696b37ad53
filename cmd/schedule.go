package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"api_crowdsale/internal/crowdsale"
	"api_crowdsale/internal/token"
)

func init() {
	rootCmd.AddCommand(newScheduleCmd())
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the vested amount of an allocation at given times",
		Long: `schedule evaluates the cliff + linear vesting schedule offline. ` +
			`Without --at it prints one row per --step seconds from the vesting start ` +
			`to the vesting end.`,
		RunE: runSchedule,
	}

	f := cmd.Flags()
	f.String("allocation", token.FromTokens(1000).Dec(), "total allocation in base units")
	f.Uint64("vesting-start", 0, "vesting start, unix seconds")
	f.Uint64("cliff", 90*crowdsale.Day, "cliff duration in seconds")
	f.Uint64("duration", 365*crowdsale.Day, "vesting duration in seconds")
	f.Uint64("unit", crowdsale.DefaultRate, "granularity vested amounts are rounded down to; the sale uses its rate, 1 gives the unrounded formula")
	f.Uint64("step", 30*crowdsale.Day, "row interval in seconds when --at is not given")
	f.UintSlice("at", nil, "unix times to evaluate")
	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	rawAllocation, _ := f.GetString("allocation")
	start, _ := f.GetUint64("vesting-start")
	cliff, _ := f.GetUint64("cliff")
	duration, _ := f.GetUint64("duration")
	unit, _ := f.GetUint64("unit")
	step, _ := f.GetUint64("step")
	at, _ := f.GetUintSlice("at")

	allocation, err := token.ParseAmount(rawAllocation)
	if err != nil {
		return err
	}
	params := crowdsale.VestingParams{
		CliffDuration:   cliff,
		VestingStart:    start,
		VestingDuration: duration,
		Unit:            unit,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	times := make([]uint64, 0, len(at))
	for _, t := range at {
		times = append(times, uint64(t))
	}
	if len(times) == 0 {
		if step == 0 {
			return errors.New("step must be positive")
		}
		end := start + duration
		for t := start; t < end; t += step {
			times = append(times, t)
			if step >= end-t {
				break
			}
		}
		times = append(times, end)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tELAPSED_DAYS\tVESTED")
	for _, t := range times {
		var days uint64
		if t > start {
			days = (t - start) / crowdsale.Day
		}
		fmt.Fprintf(w, "%d\t%d\t%s\n", t, days, params.VestedAt(t, allocation).Dec())
	}
	return w.Flush()
}
