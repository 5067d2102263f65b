// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblocklib

import (
	"math"
	"math/bits"

	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

/* Stat is the posix stat record for a block device as far as we can fill one in. A
virtual device has no owner, inode, or timestamps, so those all stay zero. */
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint64
	Size    int64 // bytes
	Blocks  int64 // sectors
	Blksize int64 // sector size
}

const stat_read_mode uint32 = unix.S_IFREG | unix.S_IRUSR | unix.S_IRGRP | unix.S_IROTH
const stat_write_mode uint32 = unix.S_IWUSR | unix.S_IWGRP | unix.S_IWOTH

func (this *Mirage_block) stat_from_device_info(info mirageblockinterfaces.Device_info) (tools.Ret, Stat) {
	var out Stat

	var hi, size = bits.Mul64(uint64(info.Sector_size), info.Size_sectors)
	if hi != 0 || size > math.MaxInt64 {
		return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "device size overflows, sector size: ", info.Sector_size,
			", sectors: ", info.Size_sectors), out
	}
	if info.Size_sectors > math.MaxInt64 {
		return tools.ErrorWithCode(this.m_log, int(FAILURE_ERRNO), "sector count overflows: ", info.Size_sectors), out
	}

	out.Mode = stat_read_mode
	if info.Read_write {
		out.Mode |= stat_write_mode
	}
	out.Nlink = 1
	out.Size = int64(size)
	out.Blocks = int64(info.Size_sectors)
	out.Blksize = int64(info.Sector_size)
	return nil, out
}

func (this *Stat) Is_writable() bool {
	return this.Mode&unix.S_IWUSR != 0
}
