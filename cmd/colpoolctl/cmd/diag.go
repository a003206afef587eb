package cmd

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cobra"

	"github.com/colpool/colpool"
	"github.com/colpool/colpool/typetable"
)

var diagPoolTypeSize int

// diagCmd reports host/process memory next to a demo colpool.Runtime's
// pool-reserved byte counts, grounding spec.md §5's resource model
// (page-fault suspension, no timeouts) in an observable number: colpool
// never imposes a memory ceiling of its own, so an operator watching
// this alongside host memory is how over-commit gets noticed.
var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Report host, process, and colpool memory usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return fmt.Errorf("diag: host memory: %w", err)
		}

		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return fmt.Errorf("diag: process handle: %w", err)
		}
		procMem, err := proc.MemoryInfo()
		if err != nil {
			return fmt.Errorf("diag: process memory: %w", err)
		}

		rt, err := colpool.NewRuntime([]typetable.Descriptor{
			{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: diagPoolTypeSize},
		})
		if err != nil {
			return fmt.Errorf("diag: runtime: %w", err)
		}
		pool, err := rt.PoolCreate(1)
		if err != nil {
			return fmt.Errorf("diag: pool create: %w", err)
		}
		// One page's worth so the demo pool reports a non-trivial
		// reservation without arguing over a sample size on the flag.
		if _, err := pool.Grow(4096); err != nil {
			return fmt.Errorf("diag: pool grow: %w", err)
		}

		pools, subpools, bytesReserved := rt.Stats()

		logger.Info("host memory",
			"total_bytes", vm.Total,
			"available_bytes", vm.Available,
			"used_percent", vm.UsedPercent,
		)
		logger.Info("process memory",
			"rss_bytes", procMem.RSS,
			"vms_bytes", procMem.VMS,
		)
		logger.Info("colpool demo pool",
			"pools", pools,
			"subpools", subpools,
			"bytes_reserved", bytesReserved,
		)
		return nil
	},
}

func init() {
	diagCmd.Flags().IntVar(&diagPoolTypeSize, "record-size", 8, "Byte size of the demo pool's single primitive field")
	rootCmd.AddCommand(diagCmd)
}
