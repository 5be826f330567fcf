package supplier

import (
	"os"
	"path/filepath"
	"plugin"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrLibraryNotFound = errors.New("library not found")

	librariesMutex = &sync.Mutex{}
	loaded         = map[string]struct{}{}
	openPlugin     = func(path string) error {
		_, err := plugin.Open(path)
		return err
	}
)

// LoadLibraries opens the auxiliary libraries a descriptor depends on. A
// library is a Go plugin whose init functions Register supplier kinds. Each
// path is opened once per process.
func LoadLibraries(paths []string) error {
	librariesMutex.Lock()
	defer librariesMutex.Unlock()
	for _, path := range paths {
		absolute, err := filepath.Abs(path)
		if err != nil {
			return errors.WithMessagef(err, "invalid library path %s", path)
		}
		if _, ok := loaded[absolute]; ok {
			continue
		}
		info, err := os.Stat(absolute)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.WithMessagef(ErrLibraryNotFound, "%s", path)
			}
			return errors.WithMessagef(err, "can't stat library %s", path)
		}
		if info.IsDir() {
			return errors.Errorf("library %s is a directory", path)
		}
		if err = openPlugin(absolute); err != nil {
			return errors.WithMessagef(err, "can't open library %s", path)
		}
		loaded[absolute] = struct{}{}
	}
	return nil
}
