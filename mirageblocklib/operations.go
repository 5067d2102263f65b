// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblocklib

import (
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

/* These are the go flavored operations, tools.Ret first like everything else. nil means
it worked. The posix flavored ones in posix.go sit on top of these. A failure that came
back from the other side was already logged where it happened, so we only add context. */

func (this *Mirage_block) Open_device(session *managedruntime.Thread_session, locator string,
	buffered bool) (tools.Ret, Handle) {

	var ret, value = this.call(session, mirageblockinterfaces.ENTRY_POINT_OPEN, nil, locator, buffered)
	if ret != nil {
		return tools.ErrorWithCodeNoLog(this.m_log, int(FAILURE_ERRNO), "unable to open block device: ", locator, ", error: ", ret.Get_errmsg()), -1
	}
	var handle, ok = value.(int)
	if ok == false || handle < 0 {
		return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "open of ", locator, " returned something that isn't a handle: ", value), -1
	}
	this.m_log.Debug("opened ", locator, " buffered: ", buffered, ", handle: ", handle)
	return nil, handle
}

func (this *Mirage_block) Stat_device(session *managedruntime.Thread_session, handle Handle) (tools.Ret, Stat) {
	/* only look inside the result after we know the call didn't throw, a failed call
	hands back nothing worth decoding. */
	var ret, value = this.call(session, mirageblockinterfaces.ENTRY_POINT_STAT, nil, handle)
	if ret != nil {
		return tools.ErrorWithCodeNoLog(this.m_log, int(FAILURE_ERRNO), "unable to stat handle ", handle, ", error: ", ret.Get_errmsg()), Stat{}
	}
	var info, ok = value.(mirageblockinterfaces.Device_info)
	if ok == false {
		return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "stat of handle ", handle, " returned something that isn't device info: ", value), Stat{}
	}
	return this.stat_from_device_info(info)
}

// Close_device doesn't track anything here, a bad handle is the other side's problem to report.
func (this *Mirage_block) Close_device(session *managedruntime.Thread_session, handle Handle) tools.Ret {
	var ret, _ = this.call(session, mirageblockinterfaces.ENTRY_POINT_CLOSE, nil, handle)
	if ret != nil {
		return tools.ErrorWithCodeNoLog(this.m_log, int(FAILURE_ERRNO), "unable to close handle ", handle, ", error: ", ret.Get_errmsg())
	}
	this.m_log.Debug("closed handle ", handle)
	return nil
}

/* Preadv_device reads into iov starting at offset. a short read comes back as a short count,
we don't go back for the rest, that's up to the caller. */
func (this *Mirage_block) Preadv_device(session *managedruntime.Thread_session, handle Handle, iov []unix.Iovec,
	offset int64) (tools.Ret, int64) {
	return this.vectored(session, mirageblockinterfaces.ENTRY_POINT_PREADV, handle, iov, offset)
}

// Pwritev_device same as Preadv_device, the other direction. partial writes aren't retried.
func (this *Mirage_block) Pwritev_device(session *managedruntime.Thread_session, handle Handle, iov []unix.Iovec,
	offset int64) (tools.Ret, int64) {
	return this.vectored(session, mirageblockinterfaces.ENTRY_POINT_PWRITEV, handle, iov, offset)
}

func (this *Mirage_block) vectored(session *managedruntime.Thread_session, name string, handle Handle,
	iov []unix.Iovec, offset int64) (tools.Ret, int64) {

	var ret = this.marshal_offset(offset)
	if ret != nil {
		return ret, -1
	}
	var views managedruntime.Buffer_views
	ret, views = this.marshal_iovecs(iov)
	if ret != nil {
		return ret, -1
	}
	var requested int64 = views.Total_length()

	var value managedruntime.Value
	ret, value = this.call(session, name, views, handle, views, offset)
	if ret != nil {
		return tools.ErrorWithCodeNoLog(this.m_log, int(FAILURE_ERRNO), name, " on handle ", handle, " at offset ", offset,
			" failed, error: ", ret.Get_errmsg()), -1
	}

	var count, ok = value.(int)
	if ok == false || count < 0 || int64(count) > requested {
		return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), name, " on handle ", handle, " returned a bad byte count: ",
			value, ", requested: ", requested), -1
	}
	return nil, int64(count)
}

func (this *Mirage_block) Flush_device(session *managedruntime.Thread_session, handle Handle) tools.Ret {
	var ret, _ = this.call(session, mirageblockinterfaces.ENTRY_POINT_FLUSH, nil, handle)
	if ret != nil {
		return tools.ErrorWithCodeNoLog(this.m_log, int(FAILURE_ERRNO), "unable to flush handle ", handle, ", error: ", ret.Get_errmsg())
	}
	return nil
}
