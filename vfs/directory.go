package vfs

// DirType is the Linux DT_* directory-entry type code a DirEntry carries.
type DirType uint8

const (
	DTUnknown DirType = 0
	DTFifo    DirType = 1
	DTChr     DirType = 2
	DTDir     DirType = 4
	DTBlk     DirType = 6
	DTReg     DirType = 8
	DTLnk     DirType = 10
	DTSock    DirType = 12
)

// DirEntry is one entry the underlying directory iterator yields.
type DirEntry struct {
	Name string
	Type DirType
}

// DirIterator is the underlying VFS collaborator a Directory walks —
// spec §1 excludes the raw VFS iteration primitive from this core, so
// this package only contracts against the interface.
type DirIterator interface {
	// Next returns the next entry, or ok=false at end of directory.
	Next() (DirEntry, bool, error)
}

// Directory is a Directory file-like plus its one-slot carry buffer for
// the last read-but-not-yet-delivered entry (spec §3). Grounded on
// backend/cache.Directory for the "holds metadata about one directory"
// shape; the carry slot itself is new, required by spec §4.3's
// getdents64 packing algorithm, which has no teacher analogue.
type Directory struct {
	unsupported
	name  string
	iter  DirIterator
	carry *DirEntry
	eof   bool
}

// NewDirectory wraps iter as a Directory file-like named name.
func NewDirectory(name string, iter DirIterator) *Directory {
	return &Directory{name: name, iter: iter}
}

func (d *Directory) Kind() Kind     { return KindDirectory }
func (d *Directory) String() string { return d.name }

func (d *Directory) Poll() (PollState, error) {
	return PollState{Readable: true}, nil
}

// PeekCarry returns the carried entry, if any, without consuming it.
func (d *Directory) PeekCarry() (DirEntry, bool) {
	if d.carry == nil {
		return DirEntry{}, false
	}
	return *d.carry, true
}

// SetCarry stores e as the one entry to deliver first on the next read.
func (d *Directory) SetCarry(e DirEntry) {
	d.carry = &e
}

// ClearCarry empties the carry slot after it has been successfully
// delivered.
func (d *Directory) ClearCarry() {
	d.carry = nil
}

// ReadNext pulls the next entry from either the carry slot or the
// underlying iterator. ok is false once the directory is exhausted.
func (d *Directory) ReadNext() (DirEntry, bool, error) {
	if d.carry != nil {
		e := *d.carry
		d.carry = nil
		return e, true, nil
	}
	if d.eof {
		return DirEntry{}, false, nil
	}
	e, ok, err := d.iter.Next()
	if err != nil {
		return DirEntry{}, false, err
	}
	if !ok {
		d.eof = true
		return DirEntry{}, false, nil
	}
	return e, true, nil
}

// DTFromKind maps a FileLike's Kind to the Linux DT_* code getdents64
// reports, total over every Kind (spec §4.3: "unknown maps to
// DT_UNKNOWN").
func DTFromKind(k Kind) DirType {
	switch k {
	case KindRegular:
		return DTReg
	case KindDirectory:
		return DTDir
	case KindPipe:
		return DTFifo
	case KindSocket:
		return DTSock
	default:
		return DTUnknown
	}
}
