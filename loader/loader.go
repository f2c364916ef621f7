// Package loader implements the execve path: shebang interpretation,
// ELF parsing, dynamic-interpreter redirection, address-space
// teardown/rebuild, and the argv/envp/auxv stack image (spec §4.6).
//
// Grounded on gvisor's pkg/sentry/loader/loader.go (other_examples
// e5ebf72e_sellskin-gvisor__pkg-sentry-loader-loader.go.go): the
// maxLoaderAttempts-bounded dispatch loop over ELF-magic vs
// shebang-magic, the auxv/argv/envp stack build order, and the
// rename-to-basename-on-load step all mirror that file's shape,
// generalized from gvisor's own VFS/MemoryManager types to this
// kernel's AddressSpace and FileSource collaborators.
package loader

import (
	"bytes"
	"debug/elf"
	"strings"

	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/internal/klog"
	"github.com/nyx-tron/freeos/uabi"
)

// maxAttempts bounds the shebang/interpreter-redirect recursion, matching
// the Linux kernel's own search_binary_handler bound (gvisor's
// maxLoaderAttempts comment cites the same 6).
const maxAttempts = 6

// maxShebangLine bounds how much of a "#!" line is inspected (spec §4.6).
const maxShebangLine = 256

// FileSource resolves a path to its full byte contents, the VFS
// collaborator this package treats as external (spec §1).
type FileSource interface {
	ReadFile(path string) ([]byte, error)
}

// Segment is one planned PT_LOAD mapping request the address space must
// satisfy (spec §3's "Planned map").
type Segment struct {
	VAddrBase uintptr
	Size      uintptr
	Writable  bool
	Executable bool
	FileBytes []byte
}

// LoadPlan is the result of resolving a path through any number of
// shebang/interpreter redirections down to a final ELF image, ready to
// commit into an address space.
type LoadPlan struct {
	// OrigPath is the path execve was originally invoked with, untouched
	// by any shebang/PT_INTERP redirection. Task naming and /proc/self/exe
	// are derived from this, never from Path (spec §4.6 step 4).
	OrigPath string
	Path     string
	Argv     []string
	Entry    uintptr
	Segments []Segment
	Interp   string
}

// Resolve walks path through shebang and PT_INTERP redirection,
// returning the final load plan (spec §4.6 steps 1-2). It does not touch
// any address space; Commit does that.
func Resolve(src FileSource, path string, argv []string) (LoadPlan, error) {
	origPath := path
	var interp string
	for attempt := 0; attempt < maxAttempts; attempt++ {
		data, err := src.ReadFile(path)
		if err != nil {
			return LoadPlan{}, errno.Wrap(errno.ENOENT, "open %s: %v", path, err)
		}

		if bytes.HasPrefix(data, []byte("#!")) {
			shebangInterp, arg, rest, err := parseShebang(data)
			if err != nil {
				return LoadPlan{}, err
			}
			newArgv := append([]string{shebangInterp}, argv...)
			if arg != "" {
				newArgv = append([]string{shebangInterp, arg}, argv...)
			}
			_ = rest
			klog.Debugf(nil, "execve: %s is a shebang script, redirecting to %s", path, shebangInterp)
			path = shebangInterp
			interp = shebangInterp
			argv = newArgv
			continue
		}

		f, err := elf.NewFile(bytes.NewReader(data))
		if err != nil {
			return LoadPlan{}, errno.Wrap(errno.ENOEXEC, "%s is not a valid ELF: %v", path, err)
		}

		ptInterp, ok, err := readInterp(f, data)
		if err != nil {
			return LoadPlan{}, err
		}
		if ok {
			remapped := remapInterpreter(ptInterp)
			klog.Debugf(nil, "execve: %s requests interpreter %s, remapped to %s", path, ptInterp, remapped)
			argv = append([]string{remapped}, argv...)
			path = remapped
			interp = remapped
			continue
		}

		plan, err := buildPlan(f, data, path, argv)
		if err != nil {
			return LoadPlan{}, err
		}
		plan.OrigPath = origPath
		plan.Interp = interp
		return plan, nil
	}
	return LoadPlan{}, errno.Wrap(errno.ENOEXEC, "too many shebang/interpreter redirections for %s", path)
}

// parseShebang extracts [interp, optional_arg] from a "#!..." first
// line, bounded to maxShebangLine bytes (spec §4.6 step 1).
func parseShebang(data []byte) (interp, arg string, rest []byte, err error) {
	line := data[2:]
	if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
		rest = line[nl+1:]
		line = line[:nl]
	}
	if len(line) > maxShebangLine {
		line = line[:maxShebangLine]
	}
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return "", "", nil, errno.Wrap(errno.ENOEXEC, "empty shebang line")
	}
	interp = fields[0]
	if len(fields) > 1 {
		arg = fields[1]
	}
	return interp, arg, rest, nil
}

// readInterp returns the PT_INTERP segment's NUL-terminated path, if any.
func readInterp(f *elf.File, raw []byte) (string, bool, error) {
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}
		if prog.Off+prog.Filesz > uint64(len(raw)) {
			return "", false, errno.Wrap(errno.ENOEXEC, "PT_INTERP segment out of range")
		}
		seg := raw[prog.Off : prog.Off+prog.Filesz]
		if nul := bytes.IndexByte(seg, 0); nul >= 0 {
			seg = seg[:nul]
		}
		return string(seg), true, nil
	}
	return "", false, nil
}

// remapInterpreter rewrites a well-known dynamic-linker path to the
// single musl libc this kernel ships (spec §4.6, §6, uabi.InterpreterRemap).
func remapInterpreter(path string) string {
	if remapped, ok := uabi.InterpreterRemap[path]; ok {
		return remapped
	}
	return path
}

func buildPlan(f *elf.File, raw []byte, path string, argv []string) (LoadPlan, error) {
	var segments []Segment
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Off+prog.Filesz > uint64(len(raw)) {
			return LoadPlan{}, errno.Wrap(errno.ENOEXEC, "PT_LOAD segment out of range in %s", path)
		}
		base := uintptr(prog.Vaddr) &^ (uabi.PageSize - 1)
		intraPageOff := uintptr(prog.Vaddr) - base
		size := alignUp(intraPageOff+uintptr(prog.Memsz), uabi.PageSize)
		segments = append(segments, Segment{
			VAddrBase:  base,
			Size:       size,
			Writable:   prog.Flags&elf.PF_W != 0,
			Executable: prog.Flags&elf.PF_X != 0,
			FileBytes:  raw[prog.Off : prog.Off+prog.Filesz],
		})
	}
	if len(segments) == 0 {
		return LoadPlan{}, errno.Wrap(errno.ENOEXEC, "%s has no PT_LOAD segments", path)
	}
	return LoadPlan{
		Path:     path,
		Argv:     argv,
		Entry:    uintptr(f.Entry),
		Segments: segments,
	}, nil
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
