package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nixomose/nixomosegotools/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func new_test_host() *host {
	return new_host(tools.New_Nixomosetools_logger(tools.DEBUG))
}

func TestSplitBuffer(t *testing.T) {
	var data = []byte("abcdefghij")

	var pieces = split_buffer(data, 3)
	require.Len(t, pieces, 3)
	assert.Equal(t, data, bytes.Join(pieces, nil))
	assert.Equal(t, []byte("abc"), pieces[0])

	assert.Len(t, split_buffer(data, 0), 1)
	assert.Len(t, split_buffer(data, 50), 10)
	assert.Len(t, split_buffer(nil, 4), 4)
}

func TestStatCommand(t *testing.T) {
	var h = new_test_host()
	var out bytes.Buffer
	require.Nil(t, h.run_stat(&out, "mem:statdisk", true))
	assert.Contains(t, out.String(), "size:        51200")
	assert.Contains(t, out.String(), "read write:  true")

	out.Reset()
	assert.NotNil(t, h.run_stat(&out, "bogus://nope", true))
}

func TestWriteThenRead(t *testing.T) {
	var h = new_test_host()
	var out bytes.Buffer
	require.Nil(t, h.run_write(&out, "mem:rw", true, 40, []byte("hello there"), 3))
	assert.Contains(t, out.String(), "wrote 11 of 11 bytes at offset 40")

	out.Reset()
	require.Nil(t, h.run_read(&out, "mem:rw", true, 40, 11, 2))
	assert.Contains(t, out.String(), "hello there")

	assert.NotNil(t, h.run_read(&out, "mem:rw", true, 0, -1, 1))
	assert.NotNil(t, h.run_read(&out, "mem:rw", true, -5, 10, 1))
	assert.Equal(t, 0, h.m_table.Open_count())
}

func TestFlushCommand(t *testing.T) {
	var h = new_test_host()
	var out bytes.Buffer
	require.Nil(t, h.run_flush(&out, "mem:f", true))
	assert.Contains(t, out.String(), "flushed mem:f")
}

func TestExercise(t *testing.T) {
	var h = new_test_host()
	var out bytes.Buffer
	require.Nil(t, h.run_exercise(&out, "mem:exercise", true, 4, 5, 512, 3))
	assert.Contains(t, out.String(), "4 workers did 5 iterations each")
	assert.Equal(t, 0, h.m_runtime.Registered_thread_count())
	assert.Equal(t, 0, h.m_table.Open_count())

	/* 100 sectors of 512 split 200 ways doesn't leave room for 512 bytes each */
	assert.NotNil(t, h.run_exercise(&out, "mem:exercise", true, 200, 1, 512, 1))
	assert.NotNil(t, h.run_exercise(&out, "mem:exercise", true, 0, 1, 512, 1))
}

func TestExerciseFileBacked(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "exercise.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 64*512), 0600))

	var h = new_test_host()
	var out bytes.Buffer
	require.Nil(t, h.run_exercise(&out, "file://"+path, true, 2, 3, 1024, 2))
}

func TestRootCommand(t *testing.T) {
	var root = new_root_command(tools.New_Nixomosetools_logger(tools.DEBUG))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"stat", "mem:cli?sectors=16&sector_size=4096"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "size:        65536")
}
