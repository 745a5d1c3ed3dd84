//go:build linux

package pressure

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// Sample reads total and available RAM via sysinfo(2). Buffer memory counts
// as available since the kernel reclaims it under pressure.
func (SysinfoProbe) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Sample{}, fmt.Errorf("sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return Sample{
		Total:     uint64(info.Totalram) * unit,
		Available: (uint64(info.Freeram) + uint64(info.Bufferram)) * unit,
	}, nil
}
