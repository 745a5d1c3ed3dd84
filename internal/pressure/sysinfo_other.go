//go:build !linux

package pressure

import "context"

// Sample is unsupported off Linux.
func (SysinfoProbe) Sample(context.Context) (Sample, error) {
	return Sample{}, ErrUnsupported
}
