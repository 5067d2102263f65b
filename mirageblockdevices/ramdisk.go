// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblockdevices

import (
	"math"
	"math/bits"
	"sync"
	"syscall"

	"github.com/bits-and-blooms/bitset"
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

const DEFAULT_RAMDISK_SECTOR_SIZE uint32 = 512
const DEFAULT_RAMDISK_SECTORS uint64 = 100

/* Ramdisk is a named chunk of memory pretending to be a disk. sectors only get allocated
when somebody writes to them, anything never written reads back as zeroes. It lives as
long as the process does, closing a handle on it doesn't throw the data away. */
type Ramdisk struct {
	m_log          *tools.Nixomosetools_logger
	m_lock         sync.Mutex
	m_name         string
	m_sector_size  uint32
	m_size_sectors uint64
	m_sectors      map[uint64][]byte
	m_dirty        bitset.BitSet // sectors written since the last flush
}

func New_ramdisk(log *tools.Nixomosetools_logger, name string, sector_size uint32, size_sectors uint64) (tools.Ret, *Ramdisk) {
	if sector_size == 0 {
		return tools.ErrorWithCode(log, int(syscall.EINVAL), "ramdisk ", name, " sector size can't be zero"), nil
	}
	var hi, size = bits.Mul64(uint64(sector_size), size_sectors)
	if hi != 0 || size > math.MaxInt64 {
		return tools.ErrorWithCode(log, int(syscall.EINVAL), "ramdisk ", name, " is too big, sector size: ", sector_size,
			", sectors: ", size_sectors), nil
	}

	var ret Ramdisk
	ret.m_log = log
	ret.m_name = name
	ret.m_sector_size = sector_size
	ret.m_size_sectors = size_sectors
	ret.m_sectors = make(map[uint64][]byte)
	return nil, &ret
}

func (this *Ramdisk) Get_name() string {
	return this.m_name
}

func (this *Ramdisk) size_in_bytes() int64 {
	return int64(this.m_sector_size) * int64(this.m_size_sectors)
}

// Dirty_sectors is how many sectors were written since the last flush.
func (this *Ramdisk) Dirty_sectors() uint {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	return this.m_dirty.Count()
}

func (this *Ramdisk) read_at(dataout []byte, offset int64) (tools.Ret, int) {
	/* the request can start and end anywhere, so we go a sector at a time and copy the
	right piece of each one straight into the caller's buffer. */
	var size = this.size_in_bytes()
	if offset >= size {
		return nil, 0
	}
	var length int = len(dataout)
	if int64(length) > size-offset {
		length = int(size - offset)
	}

	var sector_size = int64(this.m_sector_size)
	var copied int = 0
	for copied < length {
		var pos int64 = offset + int64(copied)
		var sector uint64 = uint64(pos / sector_size)
		var offset_in_sector int = int(pos % sector_size)
		var amount int = int(sector_size) - offset_in_sector
		if amount > length-copied {
			amount = length - copied
		}

		var data, found = this.m_sectors[sector]
		if found {
			copy(dataout[copied:copied+amount], data[offset_in_sector:offset_in_sector+amount])
		} else {
			clear(dataout[copied : copied+amount]) // never written, zeroes
		}
		copied += amount
	}
	this.m_log.Debug("ramdisk ", this.m_name, " read from ", offset, " to ", offset+int64(copied))
	return nil, copied
}

func (this *Ramdisk) write_at(data []byte, offset int64) (tools.Ret, int) {
	var size = this.size_in_bytes()
	if offset >= size {
		return nil, 0
	}
	var length int = len(data)
	if int64(length) > size-offset {
		length = int(size - offset)
	}

	var sector_size = int64(this.m_sector_size)
	var written int = 0
	for written < length {
		var pos int64 = offset + int64(written)
		var sector uint64 = uint64(pos / sector_size)
		var offset_in_sector int = int(pos % sector_size)
		var amount int = int(sector_size) - offset_in_sector
		if amount > length-written {
			amount = length - written
		}

		var d, found = this.m_sectors[sector]
		if found == false {
			d = make([]byte, sector_size)
			this.m_sectors[sector] = d
		}
		copy(d[offset_in_sector:offset_in_sector+amount], data[written:written+amount])
		this.m_dirty.Set(uint(sector))
		written += amount
	}
	this.m_log.Debug("ramdisk ", this.m_name, " write to ", offset, " to ", offset+int64(written))
	return nil, written
}

/* Ramdisk_device is one open of a ramdisk. Two opens of the same name see the same data,
but each one can be read only or not on its own. */
type Ramdisk_device struct {
	m_disk       *Ramdisk
	m_read_write bool
}

var _ mirageblockinterfaces.Block_device = &Ramdisk_device{}
var _ mirageblockinterfaces.Block_device = (*Ramdisk_device)(nil)

func New_ramdisk_device(disk *Ramdisk, read_write bool) *Ramdisk_device {
	var d Ramdisk_device
	d.m_disk = disk
	d.m_read_write = read_write
	return &d
}

func (this *Ramdisk_device) Get_info() mirageblockinterfaces.Device_info {
	return mirageblockinterfaces.Device_info{
		Read_write:   this.m_read_write,
		Sector_size:  this.m_disk.m_sector_size,
		Size_sectors: this.m_disk.m_size_sectors,
	}
}

func (this *Ramdisk_device) Read(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int) {
	this.m_disk.m_lock.Lock()
	defer this.m_disk.m_lock.Unlock()
	return transfer_vectored(bufs, offset, this.m_disk.read_at)
}

func (this *Ramdisk_device) Write(offset int64, bufs managedruntime.Buffer_views) (tools.Ret, int) {
	if this.m_read_write == false {
		return tools.ErrorWithCode(this.m_disk.m_log, int(syscall.EROFS), "ramdisk ", this.m_disk.m_name, " was opened read only"), 0
	}
	this.m_disk.m_lock.Lock()
	defer this.m_disk.m_lock.Unlock()
	return transfer_vectored(bufs, offset, this.m_disk.write_at)
}

func (this *Ramdisk_device) Flush() tools.Ret {
	this.m_disk.m_lock.Lock()
	defer this.m_disk.m_lock.Unlock()
	this.m_disk.m_log.Debug("ramdisk ", this.m_disk.m_name, " flushing ", this.m_disk.m_dirty.Count(), " dirty sectors")
	this.m_disk.m_dirty.ClearAll()
	return nil
}

func (this *Ramdisk_device) Close() tools.Ret {
	return nil
}

// Ramdisk_registry keeps ramdisks by name so a second open finds the first one's data.
type Ramdisk_registry struct {
	m_log      *tools.Nixomosetools_logger
	m_lock     sync.Mutex
	m_ramdisks map[string]*Ramdisk
}

func New_ramdisk_registry(log *tools.Nixomosetools_logger) *Ramdisk_registry {
	var r Ramdisk_registry
	r.m_log = log
	r.m_ramdisks = make(map[string]*Ramdisk)
	return &r
}

/* Get_or_create returns the ramdisk called name, making it if it isn't there yet. the first
one to make it picks the geometry, later opens asking for something else get the original. */
func (this *Ramdisk_registry) Get_or_create(name string, sector_size uint32, size_sectors uint64) (tools.Ret, *Ramdisk) {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()

	var disk, found = this.m_ramdisks[name]
	if found {
		if disk.m_sector_size != sector_size || disk.m_size_sectors != size_sectors {
			this.m_log.Debug("ramdisk ", name, " already exists with sector size ", disk.m_sector_size,
				" and ", disk.m_size_sectors, " sectors, ignoring requested geometry")
		}
		return nil, disk
	}

	var ret tools.Ret
	ret, disk = New_ramdisk(this.m_log, name, sector_size, size_sectors)
	if ret != nil {
		return ret, nil
	}
	this.m_ramdisks[name] = disk
	this.m_log.Info("created ramdisk ", name, ", sector size: ", sector_size, ", sectors: ", size_sectors)
	return nil, disk
}

// Lookup returns nil if there's no ramdisk called name.
func (this *Ramdisk_registry) Lookup(name string) *Ramdisk {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	return this.m_ramdisks[name]
}
