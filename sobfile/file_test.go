package sobfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sob/config"
)

func tempPath(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "sobfile_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return filepath.Join(dir, "records.sob")
}

func open(t *testing.T, path string, mode config.Mode) *SOBFile {
	t.Helper()

	f, err := Open(log.NewNopLogger(), prometheus.NewRegistry(), path, config.DefaultFileOptions(mode))
	require.NoError(t, err)

	return f
}

func fakeRecord(size int) []byte {
	buf := make([]byte, 0, size)

	for len(buf) < size {
		buf = append(buf, faker.UUIDDigit()...)
	}

	return buf[:size]
}

func TestCreateWritesHeader(t *testing.T) {
	path := tempPath(t)

	f := open(t, path, config.ModeWrite)
	require.Equal(t, MinHeaderSize, f.HeaderSize())
	require.Equal(t, 0, f.Len())
	require.False(t, f.Sorted())
	require.NoError(t, f.Close())

	// The file on disk is exactly one header: magic, then zeroed fields.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, MinHeaderSize, len(raw))
	assert.Equal(t, magic, raw[:magicSize])
	assert.Equal(t, byte(MinHeaderSize), raw[offsetHeaderSize])
}

func TestReopenRetainsState(t *testing.T) {
	path := tempPath(t)

	f := open(t, path, config.ModeWrite)
	require.NoError(t, f.SetItemSize(16))

	records := make([][]byte, 10)
	for i := range records {
		records[i] = fakeRecord(16)
		require.NoError(t, f.Append(records[i]))
	}
	require.NoError(t, f.Close())

	f = open(t, path, config.ModeRead)
	defer f.Close()

	require.Equal(t, 10, f.Len())
	require.Equal(t, 16, f.ItemSize())
	require.False(t, f.Sorted())

	for i, expected := range records {
		got, err := f.Get(i)
		require.NoError(t, err)
		assert.Equal(t, expected, got, "record %d mismatch", i)
	}
}

func TestOpenUnknownMode(t *testing.T) {
	path := tempPath(t)

	_, err := Open(log.NewNopLogger(), nil, path, config.FileOptions{Mode: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.InvalidMode))
}

func TestOpenBadMagic(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o666))

	_, err := Open(log.NewNopLogger(), nil, path, config.DefaultFileOptions(config.ModeRead))
	require.Error(t, err)
	assert.True(t, errors.Is(err, InvalidMagic))
}

func TestOpenTruncatedFile(t *testing.T) {
	path := tempPath(t)

	f := open(t, path, config.ModeWrite)
	require.NoError(t, f.SetItemSize(8))
	require.NoError(t, f.Append(fakeRecord(8)))
	require.NoError(t, f.Close())

	// Chop a few bytes off the only record.
	require.NoError(t, os.Truncate(path, int64(MinHeaderSize+5)))

	_, err := Open(log.NewNopLogger(), nil, path, config.DefaultFileOptions(config.ModeRead))
	require.Error(t, err)
	assert.True(t, errors.Is(err, TruncatedFile))
}

func TestDoubleClose(t *testing.T) {
	f := open(t, tempPath(t), config.ModeWrite)

	require.NoError(t, f.Close())
	require.True(t, f.Closed())

	err := f.Close()
	assert.True(t, errors.Is(err, FileAlreadyClosed))

	_, err = f.Get(0)
	assert.True(t, errors.Is(err, FileClosed))
}

func TestWithClosesOnAllPaths(t *testing.T) {
	path := tempPath(t)

	var leaked *SOBFile

	err := With(log.NewNopLogger(), nil, path, config.DefaultFileOptions(config.ModeWrite), func(f *SOBFile) error {
		leaked = f
		require.NoError(t, f.SetItemSize(4))
		return f.Append([]byte("abcd"))
	})
	require.NoError(t, err)
	require.True(t, leaked.Closed())

	// A panic inside fn must still release the handle.
	func() {
		defer func() { recover() }()

		With(log.NewNopLogger(), nil, path, config.DefaultFileOptions(config.ModeAppend), func(f *SOBFile) error {
			leaked = f
			panic("boom")
		})
	}()
	require.True(t, leaked.Closed())
}

func TestSetItemSizeLockedWhenNotEmpty(t *testing.T) {
	f := open(t, tempPath(t), config.ModeWrite)
	defer f.Close()

	require.NoError(t, f.SetItemSize(4))
	require.NoError(t, f.Append([]byte("abcd")))

	err := f.SetItemSize(8)
	assert.True(t, errors.Is(err, SizeLocked))

	err = f.SetHeaderSize(64)
	assert.True(t, errors.Is(err, SizeLocked))
}

func TestSetHeaderSize(t *testing.T) {
	path := tempPath(t)

	f := open(t, path, config.ModeWrite)
	require.NoError(t, f.SetHeaderSize(64))
	require.Equal(t, 64, f.HeaderSize())

	err := f.SetHeaderSize(16)
	assert.True(t, errors.Is(err, InvalidHeaderSize))

	require.NoError(t, f.SetItemSize(4))
	require.NoError(t, f.Append([]byte("wxyz")))
	require.NoError(t, f.Close())

	// Records must sit after the grown header.
	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(64+4), stat.Size())

	f = open(t, path, config.ModeRead)
	defer f.Close()

	require.Equal(t, 64, f.HeaderSize())
	got, err := f.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("wxyz"), got)
}

func TestAppendModeRequiresExistingFile(t *testing.T) {
	_, err := Open(log.NewNopLogger(), nil, tempPath(t), config.DefaultFileOptions(config.ModeAppend))
	require.Error(t, err)
}

func TestAppendModeExtendsFile(t *testing.T) {
	path := tempPath(t)

	f := open(t, path, config.ModeWrite)
	require.NoError(t, f.SetItemSize(4))
	require.NoError(t, f.Append([]byte("aaaa")))
	require.NoError(t, f.Close())

	f = open(t, path, config.ModeAppend)
	require.NoError(t, f.Append([]byte("bbbb")))
	require.Equal(t, 2, f.Len())
	require.NoError(t, f.Close())

	f = open(t, path, config.ModeRead)
	defer f.Close()

	require.Equal(t, 2, f.Len())
	got, err := f.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbb"), got)
}
