package dirent

import (
	"testing"

	"github.com/nyx-tron/freeos/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceIter struct {
	entries []vfs.DirEntry
	i       int
}

func (s *sliceIter) Next() (vfs.DirEntry, bool, error) {
	if s.i >= len(s.entries) {
		return vfs.DirEntry{}, false, nil
	}
	e := s.entries[s.i]
	s.i++
	return e, true, nil
}

func TestRecLenMatchesScenarioS3(t *testing.T) {
	assert.Equal(t, 24, recLen(1))
	assert.Equal(t, 24, recLen(2))
}

func TestReadIntoPartialCarryover(t *testing.T) {
	iter := &sliceIter{entries: []vfs.DirEntry{
		{Name: "a", Type: vfs.DTReg},
		{Name: "bb", Type: vfs.DTReg},
	}}
	d := vfs.NewDirectory("d", iter)

	buf := make([]byte, 24)
	n, err := ReadInto(d, buf)
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	n, err = ReadInto(d, buf)
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	n, err = ReadInto(d, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadIntoTooSmallBufferIsEINVAL(t *testing.T) {
	iter := &sliceIter{entries: []vfs.DirEntry{{Name: "toolonganame", Type: vfs.DTReg}}}
	d := vfs.NewDirectory("d", iter)

	buf := make([]byte, 4)
	_, err := ReadInto(d, buf)
	assert.Error(t, err)
}

func TestReadIntoEmptyDirectory(t *testing.T) {
	d := vfs.NewDirectory("d", &sliceIter{})
	buf := make([]byte, 64)
	n, err := ReadInto(d, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
