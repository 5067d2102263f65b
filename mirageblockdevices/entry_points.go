// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblockdevices

import (
	"syscall"

	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

/* Register_entry_points publishes the six block entry points into runtime, all of them
working against table. Nothing on the native side can reach a device until this is done. */
func Register_entry_points(log *tools.Nixomosetools_logger, runtime *managedruntime.Runtime, table *Session_table) {

	runtime.Register(mirageblockinterfaces.ENTRY_POINT_OPEN, func(args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {
		if len(args) != 2 {
			return bad_args(log, mirageblockinterfaces.ENTRY_POINT_OPEN, args), nil
		}
		var locator, ok1 = args[0].(string)
		var buffered, ok2 = args[1].(bool)
		if ok1 == false || ok2 == false {
			return bad_args(log, mirageblockinterfaces.ENTRY_POINT_OPEN, args), nil
		}
		var ret, handle = table.Open(locator, buffered)
		if ret != nil {
			return ret, nil
		}
		return nil, handle
	})

	runtime.Register(mirageblockinterfaces.ENTRY_POINT_STAT, func(args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {
		var ret, device = device_arg(log, table, mirageblockinterfaces.ENTRY_POINT_STAT, args, 1)
		if ret != nil {
			return ret, nil
		}
		return nil, device.Get_info()
	})

	runtime.Register(mirageblockinterfaces.ENTRY_POINT_CLOSE, func(args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {
		if len(args) != 1 {
			return bad_args(log, mirageblockinterfaces.ENTRY_POINT_CLOSE, args), nil
		}
		var handle, ok = args[0].(int)
		if ok == false {
			return bad_args(log, mirageblockinterfaces.ENTRY_POINT_CLOSE, args), nil
		}
		return table.Close(handle), nil
	})

	runtime.Register(mirageblockinterfaces.ENTRY_POINT_PREADV, func(args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {
		var ret, device, bufs, offset = vectored_args(log, table, mirageblockinterfaces.ENTRY_POINT_PREADV, args)
		if ret != nil {
			return ret, nil
		}
		var n int
		ret, n = device.Read(offset, bufs)
		if ret != nil {
			return ret, nil
		}
		return nil, n
	})

	runtime.Register(mirageblockinterfaces.ENTRY_POINT_PWRITEV, func(args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {
		var ret, device, bufs, offset = vectored_args(log, table, mirageblockinterfaces.ENTRY_POINT_PWRITEV, args)
		if ret != nil {
			return ret, nil
		}
		var n int
		ret, n = device.Write(offset, bufs)
		if ret != nil {
			return ret, nil
		}
		return nil, n
	})

	runtime.Register(mirageblockinterfaces.ENTRY_POINT_FLUSH, func(args ...managedruntime.Value) (tools.Ret, managedruntime.Value) {
		var ret, device = device_arg(log, table, mirageblockinterfaces.ENTRY_POINT_FLUSH, args, 1)
		if ret != nil {
			return ret, nil
		}
		return device.Flush(), nil
	})
}

func bad_args(log *tools.Nixomosetools_logger, name string, args []managedruntime.Value) tools.Ret {
	return tools.ErrorWithCode(log, int(syscall.EINVAL), "bad arguments to ", name, ": ", args)
}

// device_arg pulls the handle out of args[0] and finds its device.
func device_arg(log *tools.Nixomosetools_logger, table *Session_table, name string, args []managedruntime.Value,
	want int) (tools.Ret, mirageblockinterfaces.Block_device) {
	if len(args) != want {
		return bad_args(log, name, args), nil
	}
	var handle, ok = args[0].(int)
	if ok == false {
		return bad_args(log, name, args), nil
	}
	return table.Lookup(handle)
}

func vectored_args(log *tools.Nixomosetools_logger, table *Session_table, name string,
	args []managedruntime.Value) (tools.Ret, mirageblockinterfaces.Block_device, managedruntime.Buffer_views, int64) {
	var ret, device = device_arg(log, table, name, args, 3)
	if ret != nil {
		return ret, nil, nil, 0
	}
	var bufs, ok1 = args[1].(managedruntime.Buffer_views)
	var offset, ok2 = args[2].(int64)
	if ok1 == false || ok2 == false || offset < 0 {
		return bad_args(log, name, args), nil, nil, 0
	}
	return nil, device, bufs, offset
}
