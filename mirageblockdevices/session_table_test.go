package mirageblockdevices

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/nixomose/mirageblockgo/managedruntime"
	"github.com/nixomose/mirageblockgo/mirageblocklib/mirageblockinterfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTableMemLocators(t *testing.T) {
	var table = New_session_table(new_test_log())

	var ret, h0 = table.Open("mem:disk1", true)
	require.Nil(t, ret)
	assert.Equal(t, 0, h0)

	var h1 int
	ret, h1 = table.Open("mem:disk2?sectors=8&sector_size=4096&ro=1", false)
	require.Nil(t, ret)
	assert.Equal(t, 1, h1)
	assert.Equal(t, 2, table.Open_count())

	var dev mirageblockinterfaces.Block_device
	ret, dev = table.Lookup(h0)
	require.Nil(t, ret)
	assert.Equal(t, mirageblockinterfaces.Device_info{Read_write: true, Sector_size: 512, Size_sectors: 100}, dev.Get_info())

	ret, dev = table.Lookup(h1)
	require.Nil(t, ret)
	assert.Equal(t, mirageblockinterfaces.Device_info{Read_write: false, Sector_size: 4096, Size_sectors: 8}, dev.Get_info())

	require.Nil(t, table.Close(h0))
	ret, _ = table.Lookup(h0)
	require.NotNil(t, ret)
	assert.Equal(t, int(syscall.EBADF), ret.Get_errcode())
	assert.NotNil(t, table.Close(h0))

	var h2 int
	ret, h2 = table.Open("mem:disk1", true)
	require.Nil(t, ret)
	assert.Equal(t, 2, h2)
	assert.NotNil(t, table.Get_ramdisks().Lookup("disk1"))
}

func TestSessionTableBadLocators(t *testing.T) {
	var table = New_session_table(new_test_log())
	for _, locator := range []string{
		"bogus://nope",
		"mem:",
		"mem:x?sectors=lots",
		"mem:x?sector_size=0",
		"mem:x?ro=maybe",
		"file:",
		"file:" + filepath.Join(t.TempDir(), "does-not-exist"),
		"file://relative/x",
		"file://localhost" + new_backing_file(t, 512),
		"%zz",
	} {
		var ret, h = table.Open(locator, true)
		assert.NotNil(t, ret, locator)
		assert.Equal(t, -1, h, locator)
	}
	assert.Equal(t, 0, table.Open_count())
}

func TestSessionTableFileLocator(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 4*512), 0600))

	var table = New_session_table(new_test_log())
	var ret, h = table.Open("file://"+path, true)
	require.Nil(t, ret)

	var dev mirageblockinterfaces.Block_device
	ret, dev = table.Lookup(h)
	require.Nil(t, ret)
	assert.Equal(t, uint64(4), dev.Get_info().Size_sectors)

	var n int
	ret, n = dev.Write(512, views_of([]byte("through the table")))
	require.Nil(t, ret)
	assert.Equal(t, 17, n)
	require.Nil(t, dev.Flush())
	require.Nil(t, table.Close(h))

	var contents, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("through the table"), contents[512:529])
}

func TestEntryPointsRejectBadArgs(t *testing.T) {
	var log = new_test_log()
	var runtime = managedruntime.New_runtime(log)
	var table = New_session_table(log)
	Register_entry_points(log, runtime, table)

	for _, name := range mirageblockinterfaces.ALL_ENTRY_POINTS {
		require.NotNil(t, runtime.Named_value(name), name)
	}

	var result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_OPEN), 42, true)
	assert.True(t, result.Is_exception_result())

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_STAT), "zero")
	assert.True(t, result.Is_exception_result())

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_OPEN), "mem:ep", true)
	require.False(t, result.Is_exception_result())
	var handle = result.Get_value().(int)

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_PREADV), handle, views_of(make([]byte, 8)), int64(-1))
	assert.True(t, result.Is_exception_result())

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_PREADV), handle, [][]byte{make([]byte, 8)}, int64(0))
	assert.True(t, result.Is_exception_result())

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_PREADV), handle, views_of(make([]byte, 8)), int64(0))
	require.False(t, result.Is_exception_result())
	assert.Equal(t, 8, result.Get_value())

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_STAT), handle)
	require.False(t, result.Is_exception_result())
	assert.Equal(t, uint64(100), result.Get_value().(mirageblockinterfaces.Device_info).Size_sectors)

	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_CLOSE), handle)
	assert.False(t, result.Is_exception_result())
	result = runtime.Callback_exn(runtime.Named_value(mirageblockinterfaces.ENTRY_POINT_CLOSE), handle)
	assert.True(t, result.Is_exception_result())
}
