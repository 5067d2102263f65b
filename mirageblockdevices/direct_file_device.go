// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblockdevices

import (
	"os"
	"sync"
	"syscall"

	"github.com/ncw/directio"
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

/* Direct_file_device is the unbuffered way, O_DIRECT, straight to the disk. O_DIRECT wants
everything aligned, the memory, the offset and the length, so the sector size is the direct
io block size and we bounce through an aligned buffer since we can't promise anything about
where the caller's memory is. */
type Direct_file_device struct {
	m_log          *tools.Nixomosetools_logger
	m_lock         sync.Mutex
	m_path         string
	m_file         *os.File
	m_read_write   bool
	m_size_sectors uint64
}

var _ mirageblockinterfaces.Block_device = &Direct_file_device{}

func Open_direct_file_device(log *tools.Nixomosetools_logger, path string, read_write bool) (tools.Ret, *Direct_file_device) {
	var flag int = os.O_RDONLY
	if read_write {
		flag = os.O_RDWR
	}

	var f, err = directio.OpenFile(path, flag, 0)
	if err != nil {
		return tools.ErrorWithCode(log, int(syscall.ENOENT), "unable to open backing file ", path, " for direct io, err: ", err), nil
	}

	var fi os.FileInfo
	fi, err = f.Stat()
	if err != nil {
		f.Close()
		return tools.Error(log, "unable to stat backing file ", path, ", err: ", err), nil
	}
	var size_sectors uint64 = uint64(fi.Size()) / uint64(directio.BlockSize)
	if size_sectors == 0 {
		f.Close()
		return tools.ErrorWithCode(log, int(syscall.EINVAL), "backing file ", path, " is smaller than one direct io block"), nil
	}

	var d Direct_file_device
	d.m_log = log
	d.m_path = path
	d.m_file = f
	d.m_read_write = read_write
	d.m_size_sectors = size_sectors
	log.Debug("opened ", path, " for direct io, sectors: ", size_sectors, ", read write: ", read_write)
	return nil, &d
}

func (this *Direct_file_device) Get_info() mirageblockinterfaces.Device_info {
	return mirageblockinterfaces.Device_info{
		Read_write:   this.m_read_write,
		Sector_size:  uint32(directio.BlockSize),
		Size_sectors: this.m_size_sectors,
	}
}

func (this *Direct_file_device) size_in_bytes() int64 {
	return int64(this.m_size_sectors) * int64(directio.BlockSize)
}

func (this *Direct_file_device) check_alignment(p []byte, offset int64) tools.Ret {
	if offset%int64(directio.BlockSize) != 0 || len(p)%directio.BlockSize != 0 {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "direct io on ", this.m_path, " must be aligned to ",
			directio.BlockSize, " bytes, got offset: ", offset, ", length: ", len(p))
	}
	return nil
}

// clamp trims a request so it doesn't run off the end of the device.
func (this *Direct_file_device) clamp(p []byte, offset int64) int {
	var size = this.size_in_bytes()
	if offset >= size {
		return 0
	}
	var length int = len(p)
	if int64(length) > size-offset {
		length = int(size - offset)
	}
	return length
}

func (this *Direct_file_device) read_at(p []byte, offset int64) (tools.Ret, int) {
	var ret = this.check_alignment(p, offset)
	if ret != nil {
		return ret, 0
	}
	var length = this.clamp(p, offset)
	if length == 0 {
		return nil, 0
	}

	var bounce []byte = directio.AlignedBlock(length)
	var n, err = unix.Pread(int(this.m_file.Fd()), bounce, offset)
	if err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EIO), "direct read of ", this.m_path, " at ", offset, " failed, err: ", err), 0
	}
	return nil, copy(p, bounce[:n])
}

func (this *Direct_file_device) write_at(p []byte, offset int64) (tools.Ret, int) {
	var ret = this.check_alignment(p, offset)
	if ret != nil {
		return ret, 0
	}
	var length = this.clamp(p, offset)
	if length == 0 {
		return nil, 0
	}

	var bounce []byte = directio.AlignedBlock(length)
	copy(bounce, p[:length])
	var n, err = unix.Pwrite(int(this.m_file.Fd()), bounce, offset)
	if err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EIO), "direct write of ", this.m_path, " at ", offset, " failed, err: ", err), 0
	}
	return nil, n
}

func (this *Direct_file_device) Read(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int) {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_file == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "read from closed file device ", this.m_path), 0
	}
	return transfer_vectored(bufs, offset, this.read_at)
}

func (this *Direct_file_device) Write(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int) {
	if this.m_read_write == false {
		return tools.ErrorWithCode(this.m_log, int(syscall.EROFS), "file device ", this.m_path, " was opened read only"), 0
	}
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_file == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "write to closed file device ", this.m_path), 0
	}
	return transfer_vectored(bufs, offset, this.write_at)
}

func (this *Direct_file_device) Flush() tools.Ret {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_file == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "flush of closed file device ", this.m_path)
	}
	var err = unix.Fsync(int(this.m_file.Fd()))
	if err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EIO), "fsync of ", this.m_path, " failed, err: ", err)
	}
	return nil
}

func (this *Direct_file_device) Close() tools.Ret {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_file == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "file device ", this.m_path, " already closed")
	}
	var err = this.m_file.Close()
	this.m_file = nil
	if err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EIO), "error closing file device ", this.m_path, ", err: ", err)
	}
	return nil
}
