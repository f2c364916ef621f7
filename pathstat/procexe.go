package pathstat

import (
	"path"
	"unicode/utf8"

	"github.com/nyx-tron/freeos/errno"
)

// maxSymlinkDepth bounds /proc/self/exe resolution (spec §4.9: "up to
// depth 8"), the same defensive bound backend/local/symlink.go's
// isCircularSymlinkError guards against by recognizing the host's
// ELOOP, generalized here to an explicit counted loop since this
// kernel resolves links itself instead of delegating to the host
// open(2).
const maxSymlinkDepth = 8

// ResolveExe resolves /proc/self/exe: readlink exePath repeatedly,
// joining relative targets against the parent directory of the path
// being resolved, until a non-symlink is reached or maxSymlinkDepth is
// exceeded (spec §4.9). A non-UTF-8 target, or a readlink failure at
// any step, stops resolution with an error.
func ResolveExe(m Metadata, exePath string) (string, error) {
	current := exePath
	for depth := 0; depth < maxSymlinkDepth; depth++ {
		target, isLink, err := m.Readlink(current)
		if err != nil {
			return "", errno.Wrap(errno.ENOENT, "resolve %s: %v", current, err)
		}
		if !isLink {
			return current, nil
		}
		if !utf8.ValidString(target) {
			return "", errno.EINVAL
		}
		if path.IsAbs(target) {
			current = path.Clean(target)
		} else {
			current = path.Join(path.Dir(current), target)
		}
	}
	return "", errno.EINVAL
}
