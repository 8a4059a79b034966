// Command cannonball-harness drives a callback.Machine against a real
// Unix socket listener using simulated VCPU workloads, for exercising the
// correlation core end to end without attaching a real host emulator.
// This is a demo over the core, not part of the core itself.
package main

import (
	"fmt"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/novafacing/cannonball/callback"
	"github.com/novafacing/cannonball/corecode"
	"github.com/novafacing/cannonball/flagset"
	"github.com/novafacing/cannonball/internal/corelog"
	"github.com/novafacing/cannonball/internal/harness"
	"github.com/novafacing/cannonball/pluginopts"
	"github.com/novafacing/cannonball/sender"
)

var optString string
var vcpus int
var batchSize int

var rootCmd = &cobra.Command{
	Use:   "cannonball-harness",
	Short: "Drive the cannonball correlation core against a real consumer socket",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&optString, "opts", "trace_pc=on,sock_path=/dev/shm/cannonball.sock",
		"comma-separated key=value plugin options, per the sock_path/trace_* option surface")
	rootCmd.Flags().IntVar(&vcpus, "vcpus", 4, "number of simulated VCPUs to drive concurrently")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", sender.DefaultBatchSize, "sender batch size")
}

func run(cmd *cobra.Command, args []string) error {
	opts, err := pluginopts.Parse(optString)
	if err != nil {
		if corecode.ArgumentHandlerExit.Is(err) {
			fmt.Print(pluginopts.Usage())
			return nil
		}
		return err
	}

	if err := corelog.Configure(corelog.Level(opts.LogLevel), opts.LogFile); err != nil {
		return err
	}

	runID := uuid.New()
	log.WithField("run_id", runID.String()).Info("starting harness run")

	request := flagset.Build(opts.TracePC, opts.TraceReads, opts.TraceWrites, opts.TraceInstrs, opts.TraceSyscalls, opts.TraceBranches)

	s, err := sender.Setup(opts.SockPath, batchSize)
	if err != nil {
		return err
	}

	m := callback.New(request, vcpus, s, fixedImage{min: 0x400000, max: 0x500000, entry: 0x400400})

	err = harness.Run(m, vcpus, func(vcpu int, m *callback.Machine) error {
		tb := harness.NewSimTB(
			callback.Instruction{PC: 0x400400, Size: 4, Opcode: []byte{0x55, 0x48, 0x89, 0xe5}},
			callback.Instruction{PC: 0x400404, Size: 3, Opcode: []byte{0x8b, 0x45, 0xfc}},
		)
		m.OnTranslate(tb)
		tb.Execute(vcpu, m)
		tb.MemAccess(vcpu, 1, m, 0x7fff0000, false)
		return nil
	})
	if err != nil {
		return err
	}

	m.OnVCPUExit(0)

	color.New(color.FgGreen).Printf("run %s: %d simulated VCPUs drained\n", runID.String(), vcpus)
	return nil
}

type fixedImage struct{ min, max, entry uint64 }

func (f fixedImage) ImageBounds() (uint64, uint64, uint64) { return f.min, f.max, f.entry }

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("cannonball-harness failed")
	}
}
