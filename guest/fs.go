package guest

import (
	"io"

	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/wippyai/hello-element/errors"
)

// ReadFile reads the whole file at path from fs. A missing file yields a
// load error that still matches os.ErrNotExist.
func ReadFile(fs billy.Filesystem, path string) ([]byte, error) {
	if fs == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no filesystem to resolve "+path)
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	return data, nil
}
