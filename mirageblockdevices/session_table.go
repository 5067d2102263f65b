// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

/* Package mirageblockdevices is the block implementation side of the boundary. It keeps
the table of open devices keyed by handle and registers the entry points the native side
calls by name. */
package mirageblockdevices

import (
	"net/url"
	"strconv"
	"sync"
	"syscall"

	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

const LOCATOR_SCHEME_MEM string = "mem"
const LOCATOR_SCHEME_FILE string = "file"

/* Session_table maps handles to open devices. handles start at zero and go up, and a handle
is never given out twice, so a stale one can't accidentally land on somebody else's device. */
type Session_table struct {
	m_log         *tools.Nixomosetools_logger
	m_lock        sync.Mutex
	m_next_handle int
	m_sessions    map[int]mirageblockinterfaces.Block_device
	m_ramdisks    *Ramdisk_registry
}

func New_session_table(log *tools.Nixomosetools_logger) *Session_table {
	var s Session_table
	s.m_log = log
	s.m_next_handle = 0
	s.m_sessions = make(map[int]mirageblockinterfaces.Block_device)
	s.m_ramdisks = New_ramdisk_registry(log)
	return &s
}

func (this *Session_table) Get_ramdisks() *Ramdisk_registry {
	return this.m_ramdisks
}

func (this *Session_table) Open_count() int {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	return len(this.m_sessions)
}

// Open opens locator and hands back a new handle. nothing is left behind if it fails.
func (this *Session_table) Open(locator string, buffered bool) (tools.Ret, int) {
	var ret, device = this.open_device(locator, buffered)
	if ret != nil {
		return ret, -1
	}

	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	var handle int = this.m_next_handle
	this.m_next_handle++
	this.m_sessions[handle] = device
	this.m_log.Info("opened ", locator, " as handle ", handle)
	return nil, handle
}

func (this *Session_table) Lookup(handle int) (tools.Ret, mirageblockinterfaces.Block_device) {
	this.m_lock.Lock()
	defer this.m_lock.Unlock()
	var device, found = this.m_sessions[handle]
	if found == false {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "no open device for handle ", handle), nil
	}
	return nil, device
}

/* Close takes the handle out of the table first, so even if closing the device fails the
handle is dead either way. */
func (this *Session_table) Close(handle int) tools.Ret {
	this.m_lock.Lock()
	var device, found = this.m_sessions[handle]
	if found {
		delete(this.m_sessions, handle)
	}
	this.m_lock.Unlock()

	if found == false {
		return tools.ErrorWithCode(this.m_log, int(syscall.EBADF), "close of handle ", handle, " which isn't open")
	}
	var ret = device.Close()
	if ret != nil {
		return ret
	}
	this.m_log.Info("closed handle ", handle)
	return nil
}

/* open_device figures out what kind of device the locator is talking about.
	mem:<name>[?sectors=N&sector_size=S&ro=1]
	file:<path>[?ro=1]
anything else we don't know how to open. */
func (this *Session_table) open_device(locator string, buffered bool) (tools.Ret, mirageblockinterfaces.Block_device) {
	var u, err = url.Parse(locator)
	if err != nil {
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "unable to parse locator: ", locator, ", err: ", err), nil
	}

	var query url.Values = u.Query()
	var ret, read_only = query_bool(this.m_log, query, "ro", false)
	if ret != nil {
		return ret, nil
	}

	switch u.Scheme {
	case LOCATOR_SCHEME_MEM:
		var name string = u.Opaque
		if name == "" {
			name = u.Path
		}
		if name == "" {
			return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "ramdisk locator has no name: ", locator), nil
		}
		var sectors uint64
		ret, sectors = query_uint(this.m_log, query, "sectors", DEFAULT_RAMDISK_SECTORS, 64)
		if ret != nil {
			return ret, nil
		}
		var sector_size uint64
		ret, sector_size = query_uint(this.m_log, query, "sector_size", uint64(DEFAULT_RAMDISK_SECTOR_SIZE), 32)
		if ret != nil {
			return ret, nil
		}
		var disk *Ramdisk
		ret, disk = this.m_ramdisks.Get_or_create(name, uint32(sector_size), sectors)
		if ret != nil {
			return ret, nil
		}
		return nil, New_ramdisk_device(disk, read_only == false)

	case LOCATOR_SCHEME_FILE:
		/* file://host/path would quietly become /path, and we only do local files */
		if u.Host != "" {
			return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "file locator can't name a host: ", locator), nil
		}
		var path string = u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "file locator has no path: ", locator), nil
		}
		if buffered {
			var ret, d = Open_mmap_file_device(this.m_log, path, read_only == false)
			if ret != nil {
				return ret, nil
			}
			return nil, d
		}
		var ret, d = Open_direct_file_device(this.m_log, path, read_only == false)
		if ret != nil {
			return ret, nil
		}
		return nil, d

	default:
		return tools.ErrorWithCode(this.m_log, int(syscall.EINVAL), "don't know how to open locator: ", locator), nil
	}
}

func query_uint(log *tools.Nixomosetools_logger, query url.Values, key string, def uint64, bitsize int) (tools.Ret, uint64) {
	var s string = query.Get(key)
	if s == "" {
		return nil, def
	}
	var v, err = strconv.ParseUint(s, 10, bitsize)
	if err != nil {
		return tools.ErrorWithCode(log, int(syscall.EINVAL), "invalid value for ", key, ": ", s), 0
	}
	return nil, v
}

func query_bool(log *tools.Nixomosetools_logger, query url.Values, key string, def bool) (tools.Ret, bool) {
	var s string = query.Get(key)
	if s == "" {
		return nil, def
	}
	var v, err = strconv.ParseBool(s)
	if err != nil {
		return tools.ErrorWithCode(log, int(syscall.EINVAL), "invalid value for ", key, ": ", s), false
	}
	return nil, v
}
