//go:build !linux

package disk

import (
	"errors"
	"os"
)

// blockDeviceSize is not implemented on this platform; fatvol images are
// expected to be regular files here.
func blockDeviceSize(f *os.File) (int64, error) {
	return 0, errors.New("block devices are not supported on this platform")
}
