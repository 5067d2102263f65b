// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package main

import (
	"bytes"
	"fmt"
	"io"
	"syscall"

	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sync/errgroup"
)

// split_buffer cuts data into count pieces that are as even as they can be, in order.
func split_buffer(data []byte, count int) [][]byte {
	if count < 1 {
		count = 1
	}
	if count > len(data) && len(data) > 0 {
		count = len(data)
	}
	var pieces [][]byte = make([][]byte, 0, count)
	var start int = 0
	for lp := 0; lp < count; lp++ {
		var end int = len(data) * (lp + 1) / count
		pieces = append(pieces, data[start:end])
		start = end
	}
	return pieces
}

func (this *host) run_stat(out io.Writer, locator string, buffered bool) tools.Ret {
	return this.with_thread(func(session *managedruntime.Thread_session) tools.Ret {
		return this.with_device(session, locator, buffered, func(handle mirageblocklib.Handle) tools.Ret {
			var ret, st = this.m_boundary.Stat_device(session, handle)
			if ret != nil {
				return ret
			}
			fmt.Fprintf(out, "locator:     %s\n", locator)
			fmt.Fprintf(out, "handle:      %d\n", handle)
			fmt.Fprintf(out, "mode:        %#o\n", st.Mode)
			fmt.Fprintf(out, "read write:  %t\n", st.Is_writable())
			fmt.Fprintf(out, "sector size: %d\n", st.Blksize)
			fmt.Fprintf(out, "sectors:     %d\n", st.Blocks)
			fmt.Fprintf(out, "size:        %d\n", st.Size)
			return nil
		})
	})
}

func (this *host) run_read(out io.Writer, locator string, buffered bool, offset int64, length int, iovecs int) tools.Ret {
	if length < 0 {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "invalid length: ", length)
	}
	return this.with_thread(func(session *managedruntime.Thread_session) tools.Ret {
		return this.with_device(session, locator, buffered, func(handle mirageblocklib.Handle) tools.Ret {
			var data []byte = make([]byte, length)
			var iov = mirageblocklib.Iovecs_from_buffers(split_buffer(data, iovecs))
			var ret, n = this.m_boundary.Preadv_device(session, handle, iov, offset)
			if ret != nil {
				return ret
			}
			if n < int64(length) {
				this.m_log.Info("short read, asked for ", length, " got ", n)
			}
			fmt.Fprint(out, tools.Dump(data[:n]))
			return nil
		})
	})
}

func (this *host) run_write(out io.Writer, locator string, buffered bool, offset int64, data []byte, iovecs int) tools.Ret {
	return this.with_thread(func(session *managedruntime.Thread_session) tools.Ret {
		return this.with_device(session, locator, buffered, func(handle mirageblocklib.Handle) tools.Ret {
			var iov = mirageblocklib.Iovecs_from_buffers(split_buffer(data, iovecs))
			var ret, n = this.m_boundary.Pwritev_device(session, handle, iov, offset)
			if ret != nil {
				return ret
			}
			ret = this.m_boundary.Flush_device(session, handle)
			if ret != nil {
				return ret
			}
			fmt.Fprintf(out, "wrote %d of %d bytes at offset %d\n", n, len(data), offset)
			return nil
		})
	})
}

func (this *host) run_flush(out io.Writer, locator string, buffered bool) tools.Ret {
	return this.with_thread(func(session *managedruntime.Thread_session) tools.Ret {
		return this.with_device(session, locator, buffered, func(handle mirageblocklib.Handle) tools.Ret {
			var ret = this.m_boundary.Flush_device(session, handle)
			if ret != nil {
				return ret
			}
			fmt.Fprintf(out, "flushed %s\n", locator)
			return nil
		})
	})
}

/* run_exercise hammers the device from a bunch of threads at once. each worker gets its own
stretch of the device so they can check what they read back without stepping on each other. */
func (this *host) run_exercise(out io.Writer, locator string, buffered bool, workers int, iterations int,
	length int, iovecs int) tools.Ret {

	if workers < 1 || iterations < 1 || length < 1 {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "workers, iterations and length must all be positive")
	}

	var size int64
	var ret = this.with_thread(func(session *managedruntime.Thread_session) tools.Ret {
		return this.with_device(session, locator, buffered, func(handle mirageblocklib.Handle) tools.Ret {
			var r, st = this.m_boundary.Stat_device(session, handle)
			size = st.Size
			return r
		})
	})
	if ret != nil {
		return ret
	}
	var region int64 = size / int64(workers)
	if region < int64(length) {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "device of ", size, " bytes is too small for ", workers,
			" workers writing ", length, " bytes each")
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		var worker int = w
		g.Go(func() error {
			var r = this.exercise_worker(locator, buffered, worker, int64(worker)*region, iterations, length, iovecs)
			if r != nil {
				return fmt.Errorf("worker %d: %s", worker, r.Get_errmsg())
			}
			return nil
		})
	}
	var err = g.Wait()
	if err != nil {
		return tools.Error(this.m_log, "exercise failed: ", err)
	}
	fmt.Fprintf(out, "%d workers did %d iterations each against %s\n", workers, iterations, locator)
	return nil
}

func (this *host) exercise_worker(locator string, buffered bool, worker int, offset int64, iterations int,
	length int, iovecs int) tools.Ret {

	return this.with_thread(func(session *managedruntime.Thread_session) tools.Ret {
		for it := 0; it < iterations; it++ {
			var ret = this.with_device(session, locator, buffered, func(handle mirageblocklib.Handle) tools.Ret {
				var pattern []byte = bytes.Repeat([]byte{byte(worker*31 + it)}, length)
				var ret, n = this.m_boundary.Pwritev_device(session, handle,
					mirageblocklib.Iovecs_from_buffers(split_buffer(pattern, iovecs)), offset)
				if ret != nil {
					return ret
				}
				if n != int64(length) {
					return tools.Error(this.m_log, "short write, wrote ", n, " of ", length)
				}

				var readback []byte = make([]byte, length)
				ret, n = this.m_boundary.Preadv_device(session, handle,
					mirageblocklib.Iovecs_from_buffers(split_buffer(readback, iovecs)), offset)
				if ret != nil {
					return ret
				}
				if n != int64(length) || bytes.Equal(pattern, readback) == false {
					return tools.Error(this.m_log, "read back doesn't match what was written at offset ", offset)
				}
				return this.m_boundary.Flush_device(session, handle)
			})
			if ret != nil {
				return ret
			}
		}
		return nil
	})
}
