package loader

import (
	"crypto/rand"
	"encoding/binary"
	"path"

	"github.com/nyx-tron/freeos/uabi"
)

// AuxEntry is one {type, value} pair of the auxiliary vector.
type AuxEntry struct {
	Type  uint64
	Value uint64
}

// The AT_* auxv entry types this kernel writes (spec §3, §4.6: "17
// entries"). AT_NULL terminates the vector as the 17th entry.
const (
	atNull    = 0
	atPhdr    = 3
	atPhent   = 4
	atPhnum   = 5
	atBase    = 7
	atEntry   = 9
	atUID     = 11
	atEUID    = 12
	atGID     = 13
	atEGID    = 14
	atClktck  = 17
	atHwcap   = 16
	atPagesz  = 6
	atSecure  = 23
	atRandom  = 25
	atExecfn  = 31
	atSysinfo = 33
)

// phdrInfo carries the ELF program-header table location so the auxv can
// point AT_PHDR at it, mirroring what the dynamic linker expects.
type phdrInfo struct {
	Vaddr uintptr
	Entsz uint64
	Num   uint64
}

// buildAuxv returns the fixed 17-entry auxv vector (spec §3, §4.6).
func buildAuxv(plan LoadPlan, ph phdrInfo, execfnAddr, randomAddr uintptr) [uabi.AuxvEntries]AuxEntry {
	return [uabi.AuxvEntries]AuxEntry{
		{atPhdr, uint64(ph.Vaddr)},
		{atPhent, ph.Entsz},
		{atPhnum, ph.Num},
		{atBase, 0},
		{atEntry, uint64(plan.Entry)},
		{atUID, 0},
		{atEUID, 0},
		{atGID, 0},
		{atEGID, 0},
		{atSecure, 0},
		{atClktck, 100},
		{atExecfn, uint64(execfnAddr)},
		{atRandom, uint64(randomAddr)},
		{atPagesz, uabi.PageSize},
		{atSysinfo, 0},
		{atHwcap, 0},
		{atNull, 0},
	}
}

// StackImage is the fully packed byte image written at the top of the
// user stack, plus the user SP it must be mapped at (spec §4.6 step 3).
type StackImage struct {
	Bytes []byte
	SP    uintptr
}

// BuildStackImage packs argc, the argv pointer array, the envp pointer
// array and 17 auxv entries at the bottom of the image (SP, the lowest
// address a _start entry point reads), followed by the argv strings,
// envp strings, execfn and random bytes at higher addresses (spec §4.6
// step 3; spec §3's "Stack image" data-model entry). This is the SysV/
// Linux initial-stack-layout ABI: argc must be the first word at SP.
// Grounded on gvisor's Load/allocStack stack-build order (other_examples
// loader.go), adapted from gvisor's arch.Stack abstraction to a flat
// byte blob plus a resolved SP.
func BuildStackImage(plan LoadPlan, phdrVaddr uintptr, phdrEntsz, phdrNum uint64, argv, envp []string) (StackImage, error) {
	execfn := path.Clean(plan.Path)
	randBytes := make([]byte, 16)
	if _, err := rand.Read(randBytes); err != nil {
		return StackImage{}, err
	}

	// Lay out strings first to learn the region size, since the pointer
	// values depend on the final base address which in turn depends on
	// the total image length. The string region itself is placed above
	// the pointer area in the final blob, not at its start.
	var strBlob []byte
	argvOff := make([]int, len(argv))
	for i, s := range argv {
		argvOff[i] = len(strBlob)
		strBlob = append(strBlob, []byte(s)...)
		strBlob = append(strBlob, 0)
	}
	envpOff := make([]int, len(envp))
	for i, s := range envp {
		envpOff[i] = len(strBlob)
		strBlob = append(strBlob, []byte(s)...)
		strBlob = append(strBlob, 0)
	}
	execfnOff := len(strBlob)
	strBlob = append(strBlob, []byte(execfn)...)
	strBlob = append(strBlob, 0)
	randomOff := len(strBlob)
	strBlob = append(strBlob, randBytes...)
	for len(strBlob)%8 != 0 {
		strBlob = append(strBlob, 0)
	}

	ptrCount := 1 + (len(argv) + 1) + (len(envp) + 1) + uabi.AuxvEntries*2
	ptrBytes := ptrCount * 8
	total := ptrBytes + len(strBlob)
	base := uabi.UserStackTop - uintptr(total)
	strBase := base + uintptr(ptrBytes)

	auxv := buildAuxv(plan, phdrInfo{Vaddr: phdrVaddr, Entsz: phdrEntsz, Num: phdrNum},
		strBase+uintptr(execfnOff), strBase+uintptr(randomOff))

	var ptrArea []byte
	putU64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		ptrArea = append(ptrArea, b[:]...)
	}

	putU64(uint64(len(argv)))
	for _, off := range argvOff {
		putU64(uint64(strBase) + uint64(off))
	}
	putU64(0)
	for _, off := range envpOff {
		putU64(uint64(strBase) + uint64(off))
	}
	putU64(0)
	for _, e := range auxv {
		putU64(e.Type)
		putU64(e.Value)
	}

	blob := append(ptrArea, strBlob...)
	return StackImage{Bytes: blob, SP: base}, nil
}
