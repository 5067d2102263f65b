// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

/* This is the C face of the boundary, build it with -buildmode=c-shared and link against
it with mirage_block_c.h. Every export is a thin shim: find the calling thread's session,
turn the C arguments into go ones, call the posix flavored operation, and if it failed,
set errno the way a C caller expects. */

package main

/*
#include <errno.h>
#include <string.h>
#include <sys/stat.h>
#include <sys/types.h>
#include <sys/uio.h>

static void mirage_block_set_errno(int e) {
	errno = e;
}
*/
import "C"

import (
	"os"
	"strings"
	"sync"
	"unsafe"

	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblockdevices"
	"github.com/nixomose/mirageblockgo/mirageblocklib"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

// LOG_LEVEL_ENV can be debug, info or error. anything else is error.
const LOG_LEVEL_ENV string = "MIRAGE_BLOCK_LOG_LEVEL"

var host_once sync.Once
var host_log *tools.Nixomosetools_logger
var host_runtime *managedruntime.Runtime
var host_boundary *mirageblocklib.Mirage_block

/* boundary sets up the whole process the first time anybody calls in. the block
implementation registers its entry points here, before any lookups can happen. */
func boundary() *mirageblocklib.Mirage_block {
	host_once.Do(func() {
		host_log = tools.New_Nixomosetools_logger(log_level(os.Getenv(LOG_LEVEL_ENV)))
		host_runtime = managedruntime.Default_runtime(host_log)
		var table = mirageblockdevices.New_session_table(host_log)
		mirageblockdevices.Register_entry_points(host_log, host_runtime, table)
		host_boundary = mirageblocklib.New_mirage_block(host_log, host_runtime)
	})
	return host_boundary
}

/* log_level: we're living in somebody else's process, so unless they ask for more we only
speak up when something goes wrong. */
func log_level(setting string) int {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "debug":
		return tools.DEBUG
	case "info":
		return tools.INFO
	default:
		return tools.ERROR
	}
}

// current_session is nil for a thread that didn't register, which the boundary rejects.
func current_session() *managedruntime.Thread_session {
	return boundary().Get_runtime().Session_for_current_thread()
}

func set_errno(errno unix.Errno) {
	C.mirage_block_set_errno(C.int(errno))
}

//export mirage_block_register_thread
func mirage_block_register_thread() {
	var ret, _ = boundary().Get_runtime().Register_foreign_thread()
	if ret != nil {
		host_log.Error("unable to register thread: ", ret.Get_errmsg())
	}
}

//export mirage_block_unregister_thread
func mirage_block_unregister_thread() {
	var session = current_session()
	if session == nil {
		host_log.Error("unregister from a thread that isn't registered")
		return
	}
	var ret = session.Unregister()
	if ret != nil {
		host_log.Error("unable to unregister thread: ", ret.Get_errmsg())
	}
}

//export mirage_block_open
func mirage_block_open(uri *C.char, buffered C.int) C.int {
	if uri == nil {
		set_errno(mirageblocklib.FAILURE_ERRNO)
		return -1
	}
	var handle, errno = boundary().Open(current_session(), C.GoString(uri), buffered != 0)
	if errno != 0 {
		set_errno(errno)
		return -1
	}
	return C.int(handle)
}

//export mirage_block_stat
func mirage_block_stat(h C.int, buf *C.struct_stat) C.int {
	if buf == nil {
		set_errno(mirageblocklib.FAILURE_ERRNO)
		return -1
	}
	var st mirageblocklib.Stat
	var rc, errno = boundary().Stat(current_session(), int(h), &st)
	if errno != 0 {
		set_errno(errno)
		return C.int(rc)
	}

	C.memset(unsafe.Pointer(buf), 0, C.size_t(C.sizeof_struct_stat))
	buf.st_dev = C.dev_t(st.Dev)
	buf.st_ino = C.ino_t(st.Ino)
	buf.st_mode = C.mode_t(st.Mode)
	buf.st_nlink = C.nlink_t(st.Nlink)
	buf.st_uid = C.uid_t(st.Uid)
	buf.st_gid = C.gid_t(st.Gid)
	buf.st_rdev = C.dev_t(st.Rdev)
	buf.st_size = C.off_t(st.Size)
	buf.st_blocks = C.blkcnt_t(st.Blocks)
	buf.st_blksize = C.blksize_t(st.Blksize)
	return 0
}

//export mirage_block_close
func mirage_block_close(h C.int) C.int {
	return C.int(boundary().Close(current_session(), int(h)))
}

// iovecs_from_c views the caller's iovec array in place, struct iovec and unix.Iovec line up.
func iovecs_from_c(iov *C.struct_iovec, iovcnt C.int) (bool, []unix.Iovec) {
	if iovcnt < 0 || (iov == nil && iovcnt > 0) {
		return false, nil
	}
	if iovcnt == 0 {
		return true, nil
	}
	return true, unsafe.Slice((*unix.Iovec)(unsafe.Pointer(iov)), int(iovcnt))
}

//export mirage_block_preadv
func mirage_block_preadv(h C.int, iov *C.struct_iovec, iovcnt C.int, offset C.off_t) C.ssize_t {
	var ok, iovs = iovecs_from_c(iov, iovcnt)
	if ok == false {
		set_errno(mirageblocklib.FAILURE_ERRNO)
		return -1
	}
	var n, errno = boundary().Preadv(current_session(), int(h), iovs, int64(offset))
	if errno != 0 {
		set_errno(errno)
		return -1
	}
	return C.ssize_t(n)
}

//export mirage_block_pwritev
func mirage_block_pwritev(h C.int, iov *C.struct_iovec, iovcnt C.int, offset C.off_t) C.ssize_t {
	var ok, iovs = iovecs_from_c(iov, iovcnt)
	if ok == false {
		set_errno(mirageblocklib.FAILURE_ERRNO)
		return -1
	}
	var n, errno = boundary().Pwritev(current_session(), int(h), iovs, int64(offset))
	if errno != 0 {
		set_errno(errno)
		return -1
	}
	return C.ssize_t(n)
}

//export mirage_block_flush
func mirage_block_flush(h C.int) C.int {
	var rc, errno = boundary().Flush(current_session(), int(h))
	if errno != 0 {
		set_errno(errno)
	}
	return C.int(rc)
}

func main() {}
