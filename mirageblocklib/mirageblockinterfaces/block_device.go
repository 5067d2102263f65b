// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

// Package mirageblockinterfaces has what both sides of the boundary agree on.
package mirageblockinterfaces

import (
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/nixomosegotools/tools"
)

/* Device_info is what a stat entry point hands back. the boundary turns it into a
posix looking stat record, the device doesn't have to know anything about that. */
type Device_info struct {
	Read_write   bool
	Sector_size  uint32
	Size_sectors uint64
}

type Block_device interface {
	Get_info() Device_info

	/* offset is in bytes. the buffers are filled (or drained) in order, the first one
	covers offset, the next one picks up where that left off. a short count is not an error. */
	Read(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int)

	Write(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int)

	Flush() tools.Ret

	Close() tools.Ret
}

// the names the block implementation registers its entry points under.
const (
	ENTRY_POINT_OPEN    string = "mirage_block_open"
	ENTRY_POINT_STAT    string = "mirage_block_stat"
	ENTRY_POINT_CLOSE   string = "mirage_block_close"
	ENTRY_POINT_PREADV  string = "mirage_block_preadv"
	ENTRY_POINT_PWRITEV string = "mirage_block_pwritev"
	ENTRY_POINT_FLUSH   string = "mirage_block_flush"
)

var ALL_ENTRY_POINTS = []string{ENTRY_POINT_OPEN, ENTRY_POINT_STAT, ENTRY_POINT_CLOSE,
	ENTRY_POINT_PREADV, ENTRY_POINT_PWRITEV, ENTRY_POINT_FLUSH}
