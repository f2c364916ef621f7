package upointer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSpace is a flat byte array standing in for a real address space;
// reads/writes outside its bounds fault.
type fakeSpace struct {
	mem []byte
}

func (s *fakeSpace) Read(va uintptr, dst []byte) error {
	if int(va)+len(dst) > len(s.mem) {
		return errFault
	}
	copy(dst, s.mem[va:])
	return nil
}

func (s *fakeSpace) Write(va uintptr, src []byte) error {
	if int(va)+len(src) > len(s.mem) {
		return errFault
	}
	copy(s.mem[va:], src)
	return nil
}

type faultErr struct{}

func (faultErr) Error() string { return "fault" }

var errFault = faultErr{}

func TestReadWriteSliceRoundtrip(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, 64)}
	f := New(sp)

	require.NoError(t, f.WriteSlice(8, []byte("hello")))
	got, err := f.ReadSlice(8, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestReadSliceFault(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, 4)}
	f := New(sp)

	_, err := f.ReadSlice(0, 100)
	assert.Error(t, err)
}

func TestReadCString(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, 64)}
	copy(sp.mem[0:], "hi\x00garbage")
	f := New(sp)

	got, err := f.ReadCString(0)
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

func TestReadCStringUnterminatedFaults(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, MaxCString+32)}
	for i := range sp.mem {
		sp.mem[i] = 'a'
	}
	f := New(sp)

	_, err := f.ReadCString(0)
	assert.Error(t, err)
}

func TestReadCStringList(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, 256)}
	// place two strings and a pointer array terminated by a null word
	copy(sp.mem[64:], "one\x00")
	copy(sp.mem[72:], "two\x00")
	binary.LittleEndian.PutUint64(sp.mem[0:], 64)
	binary.LittleEndian.PutUint64(sp.mem[8:], 72)
	binary.LittleEndian.PutUint64(sp.mem[16:], 0)

	f := New(sp)
	got, err := f.ReadCStringList(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestReadNullableAddressZero(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, 16)}
	f := New(sp)

	data, ok, err := f.ReadNullable(0, 8)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestValidUTF8StringRejectsInvalid(t *testing.T) {
	sp := &fakeSpace{mem: make([]byte, 64)}
	sp.mem[0] = 0xff
	sp.mem[1] = 0x00
	f := New(sp)

	_, err := f.ValidUTF8String(0)
	assert.Error(t, err)
}
