// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package managedruntime

/* Buffer_view is a borrowed window onto memory the native caller owns. It is handed to a
closure for one call and released when the call comes back, after which Bytes returns nil.
So if an implementation squirrels one away, it gets nothing out of it later, and it can't
scribble on caller memory that has since been freed or moved. */
type Buffer_view struct {
	m_data     []byte
	m_released bool
}

type Buffer_views []*Buffer_view

func New_buffer_view(data []byte) *Buffer_view {
	var b Buffer_view
	b.m_data = data
	return &b
}

// Bytes is the caller's memory, not a copy. nil once released.
func (this *Buffer_view) Bytes() []byte {
	return this.m_data
}

func (this *Buffer_view) Len() int {
	return len(this.m_data)
}

func (this *Buffer_view) Is_released() bool {
	return this.m_released
}

func (this *Buffer_view) Release() {
	this.m_data = nil
	this.m_released = true
}

func (this Buffer_views) Total_length() int64 {
	var total int64 = 0
	for _, v := range this {
		total += int64(v.Len())
	}
	return total
}

func (this Buffer_views) Release_all() {
	for _, v := range this {
		v.Release()
	}
}
