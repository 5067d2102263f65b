// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblockdevices

import (
	"os"
	"sync"
	"syscall"

	"github.com/edsrzf/mmap-go"
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

const FILE_SECTOR_SIZE uint32 = 512

/* Mmap_file_device is the buffered way to use a file as a disk. the whole file gets mapped
and reads and writes are just copies in and out of the mapping, the page cache does the rest.
any tail of the file that isn't a whole sector is ignored. */
type Mmap_file_device struct {
	m_log          *tools.Nixomosetools_logger
	m_lock         sync.RWMutex
	m_path         string
	m_file         *os.File
	m_map          mmap.MMap
	m_read_write   bool
	m_size_sectors uint64
}

var _ mirageblockinterfaces.Block_device = &Mmap_file_device{}

func Open_mmap_file_device(log *tools.Nixomosetools_logger, path string, read_write bool) (tools.Ret, *Mmap_file_device) {
	var flag int = os.O_RDONLY
	var prot int = mmap.RDONLY
	if read_write {
		flag = os.O_RDWR
		prot = mmap.RDWR
	}

	var f, err = os.OpenFile(path, flag, 0)
	if err != nil {
		return tools.ErrorWithCode(log, int(syscall.ENOENT), "unable to open backing file ", path, ", err: ", err), nil
	}

	var fi os.FileInfo
	fi, err = f.Stat()
	if err != nil {
		f.Close()
		return tools.Error(log, "unable to stat backing file ", path, ", err: ", err), nil
	}
	var size_sectors uint64 = uint64(fi.Size()) / uint64(FILE_SECTOR_SIZE)
	if size_sectors == 0 {
		f.Close()
		return tools.ErrorWithCode(log, int(syscall.EINVAL), "backing file ", path, " is smaller than one sector"), nil
	}

	var m mmap.MMap
	m, err = mmap.Map(f, prot, 0)
	if err != nil {
		f.Close()
		return tools.Error(log, "unable to map backing file ", path, ", err: ", err), nil
	}

	var d Mmap_file_device
	d.m_log = log
	d.m_path = path
	d.m_file = f
	d.m_map = m
	d.m_read_write = read_write
	d.m_size_sectors = size_sectors
	log.Debug("mapped ", path, ", sectors: ", size_sectors, ", read write: ", read_write)
	return nil, &d
}

func (this *Mmap_file_device) Get_info() mirageblockinterfaces.Device_info {
	return mirageblockinterfaces.Device_info{
		Read_write:   this.m_read_write,
		Sector_size:  FILE_SECTOR_SIZE,
		Size_sectors: this.m_size_sectors,
	}
}

func (this *Mmap_file_device) size_in_bytes() int64 {
	return int64(this.m_size_sectors) * int64(FILE_SECTOR_SIZE)
}

func (this *Mmap_file_device) read_at(p []byte, offset int64) (tools.Ret, int) {
	var size = this.size_in_bytes()
	if offset >= size {
		return nil, 0
	}
	var end int64 = offset + int64(len(p))
	if end > size {
		end = size
	}
	return nil, copy(p, this.m_map[offset:end])
}

func (this *Mmap_file_device) write_at(p []byte, offset int64) (tools.Ret, int) {
	var size = this.size_in_bytes()
	if offset >= size {
		return nil, 0
	}
	var end int64 = offset + int64(len(p))
	if end > size {
		end = size
	}
	return nil, copy(this.m_map[offset:end], p)
}

func (this *Mmap_file_device) Read(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int) {
	this.m_lock.RLock()
	defer this.m_lock.RUnlock()
	if this.m_map == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "read from closed file device ", this.m_path), 0
	}
	return transfer_vectored(bufs, offset, this.read_at)
}

func (this *Mmap_file_device) Write(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int) {
	if this.m_read_write == false {
		return tools.ErrorWithCode(this.m_log, int(syscall.EROFS), "file device ", this.m_path, " was opened read only"), 0
	}
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_map == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "write to closed file device ", this.m_path), 0
	}
	return transfer_vectored(bufs, offset, this.write_at)
}

func (this *Mmap_file_device) Flush() tools.Ret {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_map == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "flush of closed file device ", this.m_path)
	}
	if this.m_read_write == false {
		return nil // nothing of ours to write back
	}
	var err = this.m_map.Flush()
	if err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EIO), "unable to flush mapping for ", this.m_path, ", err: ", err)
	}
	return nil
}

func (this *Mmap_file_device) Close() tools.Ret {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	if this.m_map == nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "file device ", this.m_path, " already closed")
	}

	var unmap_err = this.m_map.Unmap()
	this.m_map = nil
	var close_err = this.m_file.Close()
	if unmap_err != nil || close_err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EIO), "error closing file device ", this.m_path,
			", unmap: ", unmap_err, ", close: ", close_err)
	}
	return nil
}
