package splice

import (
	"github.com/nyx-tron/freeos/errno"
	"github.com/nyx-tron/freeos/vfs"
)

// Sizer is implemented by file-likes that can report their current size,
// needed by Splice's file-to-pipe direction to know when to stop (spec
// §4.5: "peek file size; if *off_in >= size stop").
type Sizer interface {
	Size() int64
}

// Splice implements splice(2) between exactly one pipe endpoint and one
// file endpoint (spec §4.5). pipeSide is the pipe endpoint and takes no
// offset; pipeToFile picks the direction. fileOff must be non-nil
// (nil is errno.EINVAL), matching the real syscall's null/non-null
// offset-pointer convention.
func Splice(fileSide vfs.FileLike, fileOff *Offset, pipeSide *vfs.PipeEnd, pipeToFile bool, length int64) (int64, error) {
	if fileOff == nil {
		return 0, errno.EINVAL
	}
	if fileOff.Value < 0 || length < 0 {
		return 0, errno.EINVAL
	}

	if pipeToFile {
		return splicePipeToFile(pipeSide, fileSide, fileOff, length)
	}
	return spliceFileToPipe(fileSide, fileOff, pipeSide, length)
}

func splicePipeToFile(pipe *vfs.PipeEnd, file vfs.FileLike, fileOff *Offset, length int64) (int64, error) {
	if !pipe.Readable() {
		return 0, errno.EACCES
	}
	buf := make([]byte, bounceSize)
	var total int64
	for total < length {
		if pipe.Closed() && pipe.AvailableData() == 0 {
			break
		}
		want := length - total
		if want > bounceSize {
			want = bounceSize
		}
		n, err := pipe.Read(buf[:want])
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		w, err := file.WriteAt(fileOff.Value, buf[:n])
		fileOff.Value += int64(w)
		total += int64(w)
		if err != nil {
			return total, err
		}
		if w < n {
			break
		}
	}
	return total, nil
}

func spliceFileToPipe(file vfs.FileLike, fileOff *Offset, pipe *vfs.PipeEnd, length int64) (int64, error) {
	if !pipe.Writable() {
		return 0, errno.EACCES
	}
	sizer, _ := file.(Sizer)

	buf := make([]byte, bounceSize)
	var total int64
	for total < length {
		if sizer != nil && fileOff.Value >= sizer.Size() {
			break
		}
		want := length - total
		if want > bounceSize {
			want = bounceSize
		}
		n, err := file.ReadAt(fileOff.Value, buf[:want])
		fileOff.Value += int64(n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		w, err := pipe.Write(buf[:n])
		total += int64(w)
		if err != nil {
			return total, err
		}
		if w < n {
			break
		}
	}
	return total, nil
}
