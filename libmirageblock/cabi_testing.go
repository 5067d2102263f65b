// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

/* Go can't say C.anything in a _test.go file, so these drive the exports the way a C caller
would, real C strings, struct iovec arrays, struct stat, errno, and hand back plain go values. */

package main

/*
#include <errno.h>
#include <stdlib.h>
#include <string.h>
#include <sys/stat.h>
#include <sys/uio.h>

static int cabi_get_errno(void) {
	return errno;
}

static void cabi_put_errno(int e) {
	errno = e;
}
*/
import "C"

import (
	"unsafe"
)

type cabi_stat_result struct {
	rc      int
	errno   int
	mode    uint32
	nlink   uint64
	uid     uint32
	ino     uint64
	size    int64
	blocks  int64
	blksize int64
}

func cabi_errno() int {
	return int(C.cabi_get_errno())
}

func cabi_set_errno(e int) {
	C.cabi_put_errno(C.int(e))
}

func cabi_bool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func cabi_open(uri string, buffered bool) (int, int) {
	var curi = C.CString(uri)
	defer C.free(unsafe.Pointer(curi))
	cabi_set_errno(0)
	var h = mirage_block_open(curi, cabi_bool(buffered))
	return int(h), cabi_errno()
}

func cabi_open_null() (int, int) {
	cabi_set_errno(0)
	var h = mirage_block_open(nil, 1)
	return int(h), cabi_errno()
}

// cabi_stat fills the struct stat with fill before the call, so we can see what got touched.
func cabi_stat(h int, fill byte) cabi_stat_result {
	var st C.struct_stat
	C.memset(unsafe.Pointer(&st), C.int(fill), C.size_t(C.sizeof_struct_stat))
	cabi_set_errno(0)

	var out cabi_stat_result
	out.rc = int(mirage_block_stat(C.int(h), &st))
	out.errno = cabi_errno()
	out.mode = uint32(st.st_mode)
	out.nlink = uint64(st.st_nlink)
	out.uid = uint32(st.st_uid)
	out.ino = uint64(st.st_ino)
	out.size = int64(st.st_size)
	out.blocks = int64(st.st_blocks)
	out.blksize = int64(st.st_blksize)
	return out
}

func cabi_stat_null(h int) (int, int) {
	cabi_set_errno(0)
	var rc = mirage_block_stat(C.int(h), nil)
	return int(rc), cabi_errno()
}

// cabi_close starts errno at preset so we can tell if close wrote to it.
func cabi_close(h int, preset int) (int, int) {
	cabi_set_errno(preset)
	var rc = mirage_block_close(C.int(h))
	return int(rc), cabi_errno()
}

func cabi_flush(h int) (int, int) {
	cabi_set_errno(0)
	var rc = mirage_block_flush(C.int(h))
	return int(rc), cabi_errno()
}

/* cabi_iovecs builds a struct iovec array in C memory pointing at bufs. the caller frees it
with cabi_free_iovecs. */
func cabi_iovecs(bufs [][]byte) *C.struct_iovec {
	if len(bufs) == 0 {
		return nil
	}
	var iov = (*C.struct_iovec)(C.calloc(C.size_t(len(bufs)), C.size_t(C.sizeof_struct_iovec)))
	var arr = unsafe.Slice(iov, len(bufs))
	for lp := 0; lp < len(bufs); lp++ {
		if len(bufs[lp]) > 0 {
			arr[lp].iov_base = unsafe.Pointer(&bufs[lp][0])
		}
		arr[lp].iov_len = C.size_t(len(bufs[lp]))
	}
	return iov
}

func cabi_free_iovecs(iov *C.struct_iovec) {
	if iov != nil {
		C.free(unsafe.Pointer(iov))
	}
}

func cabi_preadv(h int, bufs [][]byte, offset int64) (int64, int) {
	var iov = cabi_iovecs(bufs)
	defer cabi_free_iovecs(iov)
	cabi_set_errno(0)
	var n = mirage_block_preadv(C.int(h), iov, C.int(len(bufs)), C.off_t(offset))
	return int64(n), cabi_errno()
}

func cabi_pwritev(h int, bufs [][]byte, offset int64) (int64, int) {
	var iov = cabi_iovecs(bufs)
	defer cabi_free_iovecs(iov)
	cabi_set_errno(0)
	var n = mirage_block_pwritev(C.int(h), iov, C.int(len(bufs)), C.off_t(offset))
	return int64(n), cabi_errno()
}

// cabi_preadv_raw passes a null iovec pointer with whatever count you like.
func cabi_preadv_raw(h int, iovcnt int) (int64, int) {
	cabi_set_errno(0)
	var n = mirage_block_preadv(C.int(h), nil, C.int(iovcnt), 0)
	return int64(n), cabi_errno()
}

func cabi_pwritev_raw(h int, iovcnt int) (int64, int) {
	cabi_set_errno(0)
	var n = mirage_block_pwritev(C.int(h), nil, C.int(iovcnt), 0)
	return int64(n), cabi_errno()
}

func cabi_register_thread() {
	mirage_block_register_thread()
}

func cabi_unregister_thread() {
	mirage_block_unregister_thread()
}
