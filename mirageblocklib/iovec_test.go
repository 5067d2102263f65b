package mirageblocklib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMarshalIovecs(t *testing.T) {
	var m = New_mirage_block(new_test_log(), nil)
	var a = []byte("hello")
	var b = []byte("world!")

	var ret, views = m.marshal_iovecs(Iovecs_from_buffers([][]byte{a, nil, b}))
	require.Nil(t, ret)
	require.Len(t, views, 3)
	assert.Equal(t, int64(11), views.Total_length())
	assert.Equal(t, 0, views[1].Len())
	assert.Same(t, &a[0], &views[0].Bytes()[0])
	assert.Same(t, &b[0], &views[2].Bytes()[0])
}

func TestMarshalIovecsNilBase(t *testing.T) {
	var m = New_mirage_block(new_test_log(), nil)
	var iov []unix.Iovec = make([]unix.Iovec, 1)
	iov[0].SetLen(10)
	var ret, views = m.marshal_iovecs(iov)
	assert.NotNil(t, ret)
	assert.Nil(t, views)
}

func TestMarshalOffset(t *testing.T) {
	var m = New_mirage_block(new_test_log(), nil)
	assert.Nil(t, m.marshal_offset(0))
	assert.Nil(t, m.marshal_offset(1<<40))
	assert.NotNil(t, m.marshal_offset(-1))
}
