// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2021-2022 stu mark

package mirageblockdevices

import (
	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/nixomosegotools/tools"
)

type transfer_func func(p []byte, offset int64) (tools.Ret, int)

/* transfer_vectored walks the views in order, each one picking up at the byte after the
last. if one comes up short (end of device) we stop there and report what we got. */
func transfer_vectored(bufs managedruntime.Buffer_views, offset int64, fn transfer_func) (tools.Ret, int) {
	var total int = 0
	for _, view := range bufs {
		var p []byte = view.Bytes()
		if len(p) == 0 {
			continue
		}
		var ret, n = fn(p, offset)
		if ret != nil {
			return ret, total
		}
		total += n
		offset += int64(n)
		if n < len(p) {
			break
		}
	}
	return nil, total
}
