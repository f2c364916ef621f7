package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	files map[string][]byte
}

func (m *memSource) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errNotFound
	}
	return data, nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var errNotFound = notFoundErr{}

// buildMinimalELF constructs a tiny valid little-endian 64-bit ELF with
// one PT_LOAD segment, for tests only.
func buildMinimalELF(t *testing.T, interp string) []byte {
	t.Helper()

	const ehSize = 64
	const phSize = 56
	numPh := 1
	if interp != "" {
		numPh = 2
	}
	phOff := uint64(ehSize)
	dataOff := phOff + uint64(numPh)*phSize
	interpBytes := append([]byte(interp), 0)

	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	buf.Write(make([]byte, 8)) // padding
	binary.Write(&buf, binary.LittleEndian, uint16(elf.ET_EXEC))
	binary.Write(&buf, binary.LittleEndian, uint16(elf.EM_X86_64))
	binary.Write(&buf, binary.LittleEndian, uint32(1)) // version
	binary.Write(&buf, binary.LittleEndian, uint64(0x401000)) // entry
	binary.Write(&buf, binary.LittleEndian, phOff)
	binary.Write(&buf, binary.LittleEndian, uint64(0)) // shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // flags
	binary.Write(&buf, binary.LittleEndian, uint16(ehSize))
	binary.Write(&buf, binary.LittleEndian, uint16(phSize))
	binary.Write(&buf, binary.LittleEndian, uint16(numPh))
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // shstrndx

	if interp != "" {
		binary.Write(&buf, binary.LittleEndian, uint32(elf.PT_INTERP))
		binary.Write(&buf, binary.LittleEndian, uint32(elf.PF_R))
		binary.Write(&buf, binary.LittleEndian, dataOff)
		binary.Write(&buf, binary.LittleEndian, uint64(0))
		binary.Write(&buf, binary.LittleEndian, uint64(0))
		binary.Write(&buf, binary.LittleEndian, uint64(len(interpBytes)))
		binary.Write(&buf, binary.LittleEndian, uint64(len(interpBytes)))
		binary.Write(&buf, binary.LittleEndian, uint64(1))
	}

	loadDataOff := dataOff + uint64(len(interpBytes))
	binary.Write(&buf, binary.LittleEndian, uint32(elf.PT_LOAD))
	binary.Write(&buf, binary.LittleEndian, uint32(elf.PF_R|elf.PF_X))
	binary.Write(&buf, binary.LittleEndian, loadDataOff)
	binary.Write(&buf, binary.LittleEndian, uint64(0x401000))
	binary.Write(&buf, binary.LittleEndian, uint64(0x401000))
	binary.Write(&buf, binary.LittleEndian, uint64(4))
	binary.Write(&buf, binary.LittleEndian, uint64(4))
	binary.Write(&buf, binary.LittleEndian, uint64(0x1000))

	buf.Write(interpBytes)
	buf.Write([]byte{0x90, 0x90, 0x90, 0x90})

	return buf.Bytes()
}

func TestResolvePlainELF(t *testing.T) {
	elfBytes := buildMinimalELF(t, "")
	src := &memSource{files: map[string][]byte{"/bin/prog": elfBytes}}

	plan, err := Resolve(src, "/bin/prog", []string{"/bin/prog"})
	require.NoError(t, err)
	assert.Equal(t, "/bin/prog", plan.Path)
	assert.EqualValues(t, 0x401000, plan.Entry)
	require.Len(t, plan.Segments, 1)
}

func TestResolveShebangRedirect(t *testing.T) {
	elfBytes := buildMinimalELF(t, "")
	src := &memSource{files: map[string][]byte{
		"/bin/s":  []byte("#!/bin/sh -x\necho hi\n"),
		"/bin/sh": elfBytes,
	}}

	plan, err := Resolve(src, "/bin/s", []string{"/bin/s", "arg"})
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", plan.Path)
	assert.Equal(t, []string{"/bin/sh", "-x", "/bin/s", "arg"}, plan.Argv)
}

func TestResolveInterpreterRemap(t *testing.T) {
	muslBytes := buildMinimalELF(t, "")
	elfBytes := buildMinimalELF(t, "/lib64/ld-linux-x86-64.so.2")
	src := &memSource{files: map[string][]byte{
		"/bin/prog":      elfBytes,
		"/musl/lib/libc.so": muslBytes,
	}}

	plan, err := Resolve(src, "/bin/prog", []string{"/bin/prog"})
	require.NoError(t, err)
	assert.Equal(t, "/musl/lib/libc.so", plan.Path)
	assert.Equal(t, []string{"/musl/lib/libc.so", "/bin/prog"}, plan.Argv)
}

func TestResolveNotELFNotShebangIsENOEXEC(t *testing.T) {
	src := &memSource{files: map[string][]byte{"/bin/garbage": []byte("not an elf at all")}}
	_, err := Resolve(src, "/bin/garbage", nil)
	assert.Error(t, err)
}

func TestBuildStackImageLayout(t *testing.T) {
	plan := LoadPlan{Path: "/bin/prog", Entry: 0x401000}
	argv := []string{"/bin/prog"}
	image, err := BuildStackImage(plan, 0, 0, 0, argv, []string{"HOME=/root"})
	require.NoError(t, err)
	assert.Less(t, uint64(image.SP), uint64(0x7ffffffff000))
	assert.NotEmpty(t, image.Bytes)

	// argc must be the very first word at SP per the SysV/Linux initial
	// stack layout; a musl _start reads it directly off the stack pointer.
	argc := binary.LittleEndian.Uint64(image.Bytes[:8])
	assert.EqualValues(t, len(argv), argc)
}

type fakeAddressSpace struct {
	unmapped bool
	writes   map[uintptr][]byte
}

func (f *fakeAddressSpace) UnmapAll() error {
	f.unmapped = true
	return nil
}

func (f *fakeAddressSpace) MapAnon(va uintptr, size uintptr, writable, executable bool) error {
	return nil
}

func (f *fakeAddressSpace) WriteAt(va uintptr, data []byte) error {
	if f.writes == nil {
		f.writes = make(map[uintptr][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes[va] = cp
	return nil
}

func TestCommitUsesOriginalPathForTaskNaming(t *testing.T) {
	elfBytes := buildMinimalELF(t, "")
	src := &memSource{files: map[string][]byte{
		"/bin/s":  []byte("#!/bin/sh\n"),
		"/bin/sh": elfBytes,
	}}

	plan, err := Resolve(src, "/bin/s", []string{"/bin/s"})
	require.NoError(t, err)
	assert.Equal(t, "/bin/s", plan.OrigPath)
	assert.Equal(t, "/bin/sh", plan.Path)

	as := &fakeAddressSpace{}
	var gotName, gotExe string
	var gotIP, gotSP uintptr
	task := Task{
		SetName:    func(name string) { gotName = name },
		SetExePath: func(path string) { gotExe = path },
		SetIPSP:    func(ip, sp uintptr) { gotIP, gotSP = ip, sp },
	}

	err = Commit(as, plan, task, plan.Argv, []string{"HOME=/root"})
	require.NoError(t, err)

	assert.True(t, as.unmapped)
	assert.Equal(t, "s", gotName)
	assert.Equal(t, "/bin/s", gotExe)
	assert.EqualValues(t, plan.Entry, gotIP)
	assert.NotZero(t, gotSP)

	stackBytes, ok := as.writes[gotSP]
	require.True(t, ok, "expected a write at the resolved stack pointer")
	argc := binary.LittleEndian.Uint64(stackBytes[:8])
	assert.EqualValues(t, len(plan.Argv), argc)
}
