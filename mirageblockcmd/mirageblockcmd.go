package main

import (
	"os"

	"github.com/nixomose/nixomosegotools/tools"
	"github.com/spf13/cobra"
)

const DEFAULT_IOVECS = 1

func main() {
	var log = tools.New_Nixomosetools_logger(tools.DEBUG)
	var root = new_root_command(log)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func new_root_command(log *tools.Nixomosetools_logger) *cobra.Command {
	var buffered bool
	var offset int64
	var length int
	var iovecs int

	var root = &cobra.Command{
		Use:           "mirageblockcmd",
		Short:         "open, inspect, read and write block devices through the mirage block boundary",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&buffered, "buffered", true, "open the device buffered (mmap) instead of O_DIRECT")
	root.PersistentFlags().IntVar(&iovecs, "iovecs", DEFAULT_IOVECS, "number of buffer descriptors to split each transfer into")

	/* every subcommand gets its own host, there's nothing worth keeping between them. */
	var run = func(fn func(h *host, cmd *cobra.Command, args []string) tools.Ret) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			var h = new_host(log)
			var ret = fn(h, cmd, args)
			if ret != nil {
				return tools_error{ret}
			}
			return nil
		}
	}

	var stat_cmd = &cobra.Command{
		Use:   "stat <locator>",
		Short: "show the size and geometry of a device",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(h *host, cmd *cobra.Command, args []string) tools.Ret {
			return h.run_stat(cmd.OutOrStdout(), args[0], buffered)
		}),
	}

	var read_cmd = &cobra.Command{
		Use:   "read <locator>",
		Short: "read from a device and hex dump it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(h *host, cmd *cobra.Command, args []string) tools.Ret {
			return h.run_read(cmd.OutOrStdout(), args[0], buffered, offset, length, iovecs)
		}),
	}
	read_cmd.Flags().Int64Var(&offset, "offset", 0, "byte offset to start at")
	read_cmd.Flags().IntVar(&length, "length", 512, "number of bytes to read")

	var data string
	var from_file string
	var write_cmd = &cobra.Command{
		Use:   "write <locator>",
		Short: "write to a device and flush it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(h *host, cmd *cobra.Command, args []string) tools.Ret {
			var payload []byte = []byte(data)
			if from_file != "" {
				var b, err = os.ReadFile(from_file)
				if err != nil {
					return tools.Error(log, "unable to read ", from_file, ", err: ", err)
				}
				payload = b
			}
			return h.run_write(cmd.OutOrStdout(), args[0], buffered, offset, payload, iovecs)
		}),
	}
	write_cmd.Flags().Int64Var(&offset, "offset", 0, "byte offset to start at")
	write_cmd.Flags().StringVar(&data, "data", "", "bytes to write")
	write_cmd.Flags().StringVar(&from_file, "from-file", "", "write the contents of this file instead of --data")

	var flush_cmd = &cobra.Command{
		Use:   "flush <locator>",
		Short: "flush a device",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(h *host, cmd *cobra.Command, args []string) tools.Ret {
			return h.run_flush(cmd.OutOrStdout(), args[0], buffered)
		}),
	}

	var workers int
	var iterations int
	var exercise_cmd = &cobra.Command{
		Use:   "exercise <locator>",
		Short: "open, write, read back, flush and close from many threads at once",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(h *host, cmd *cobra.Command, args []string) tools.Ret {
			return h.run_exercise(cmd.OutOrStdout(), args[0], buffered, workers, iterations, length, iovecs)
		}),
	}
	exercise_cmd.Flags().IntVar(&workers, "workers", 4, "number of threads")
	exercise_cmd.Flags().IntVar(&iterations, "iterations", 10, "open/close cycles per thread")
	exercise_cmd.Flags().IntVar(&length, "length", 512, "bytes each thread writes per cycle")

	root.AddCommand(stat_cmd, read_cmd, write_cmd, flush_cmd, exercise_cmd)
	return root
}

// tools_error lets a tools.Ret go back out through cobra.
type tools_error struct {
	m_ret tools.Ret
}

func (this tools_error) Error() string {
	return this.m_ret.Get_errmsg()
}
