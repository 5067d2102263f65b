package mirageblockdevices

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/ncw/directio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func new_backing_file(t *testing.T, size int) string {
	var path = filepath.Join(t.TempDir(), "backing.img")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0600))
	return path
}

func TestMmapFileDevice(t *testing.T) {
	/* a trailing partial sector isn't part of the device */
	var path = new_backing_file(t, 3*512+100)
	var ret, dev = Open_mmap_file_device(new_test_log(), path, true)
	require.Nil(t, ret)
	assert.Equal(t, uint64(3), dev.Get_info().Size_sectors)
	assert.Equal(t, FILE_SECTOR_SIZE, dev.Get_info().Sector_size)

	var data = bytes.Repeat([]byte("0123456789"), 60)
	var n int
	ret, n = dev.Write(10, views_of(data[:250], data[250:]))
	require.Nil(t, ret)
	assert.Equal(t, 600, n)

	var back = make([]byte, 600)
	ret, n = dev.Read(10, views_of(back))
	require.Nil(t, ret)
	assert.Equal(t, 600, n)
	assert.Equal(t, data, back)

	ret, n = dev.Read(3*512-4, views_of(make([]byte, 16)))
	require.Nil(t, ret)
	assert.Equal(t, 4, n)

	require.Nil(t, dev.Flush())
	require.Nil(t, dev.Close())

	var contents, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, contents[10:610])

	ret, _ = dev.Read(0, views_of(make([]byte, 1)))
	require.NotNil(t, ret)
	assert.Equal(t, int(syscall.EBADF), ret.Get_errcode())
	assert.NotNil(t, dev.Flush())
	assert.NotNil(t, dev.Close())
}

func TestMmapFileDeviceReadOnly(t *testing.T) {
	var path = new_backing_file(t, 512)
	var ret, dev = Open_mmap_file_device(new_test_log(), path, false)
	require.Nil(t, ret)
	defer dev.Close()

	assert.False(t, dev.Get_info().Read_write)
	ret, _ = dev.Write(0, views_of(make([]byte, 1)))
	require.NotNil(t, ret)
	assert.Equal(t, int(syscall.EROFS), ret.Get_errcode())
	assert.Nil(t, dev.Flush())
}

func TestMmapFileDeviceTooSmall(t *testing.T) {
	var path = new_backing_file(t, 100)
	var ret, dev = Open_mmap_file_device(new_test_log(), path, true)
	assert.NotNil(t, ret)
	assert.Nil(t, dev)
}

func TestDirectFileDevice(t *testing.T) {
	var path = new_backing_file(t, 4*directio.BlockSize)
	var ret, dev = Open_direct_file_device(new_test_log(), path, true)
	if ret != nil {
		t.Skip("no O_DIRECT support for temp files here: ", ret.Get_errmsg())
	}
	defer dev.Close()
	assert.Equal(t, uint32(directio.BlockSize), dev.Get_info().Sector_size)
	assert.Equal(t, uint64(4), dev.Get_info().Size_sectors)

	var data = bytes.Repeat([]byte{0xc3}, directio.BlockSize)
	var n int
	ret, n = dev.Write(int64(directio.BlockSize), views_of(data))
	require.Nil(t, ret)
	assert.Equal(t, directio.BlockSize, n)
	require.Nil(t, dev.Flush())

	var back = make([]byte, directio.BlockSize)
	ret, n = dev.Read(int64(directio.BlockSize), views_of(back))
	require.Nil(t, ret)
	assert.Equal(t, directio.BlockSize, n)
	assert.Equal(t, data, back)

	/* has to be aligned */
	ret, _ = dev.Read(1, views_of(back))
	assert.NotNil(t, ret)
	ret, _ = dev.Write(0, views_of(make([]byte, 100)))
	assert.NotNil(t, ret)

	ret, n = dev.Read(int64(4*directio.BlockSize), views_of(back))
	require.Nil(t, ret)
	assert.Equal(t, 0, n)
}
