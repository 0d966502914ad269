// Package platform takes a one-off snapshot of the host machine with gopsutil.
package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// Probe reads host facts. The function fields exist so tests can replace
// the gopsutil calls.
type Probe struct {
	hostInfo   func(context.Context) (*host.InfoStat, error)
	cpuCount   func(context.Context, bool) (int, error)
	virtualMem func(context.Context) (*mem.VirtualMemoryStat, error)
}

func New() *Probe {
	return &Probe{
		hostInfo:   host.InfoWithContext,
		cpuCount:   cpu.CountsWithContext,
		virtualMem: mem.VirtualMemoryWithContext,
	}
}

// Snapshot gathers what it can. Fields whose probe failed keep a fallback
// value and every failure is returned in one aggregated error.
func (p *Probe) Snapshot(ctx context.Context) (domain.Platform, error) {
	snap := domain.Platform{OS: runtime.GOOS, KernelArch: runtime.GOARCH, CPUs: runtime.NumCPU()}
	var merr *multierror.Error

	if info, err := p.hostInfo(ctx); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("host info: %w", err))
	} else if info != nil {
		if info.OS != "" {
			snap.OS = info.OS
		}
		snap.Platform = info.Platform
		snap.PlatformVersion = info.PlatformVersion
		if info.KernelArch != "" {
			snap.KernelArch = info.KernelArch
		}
	}

	if n, err := p.cpuCount(ctx, true); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("cpu count: %w", err))
	} else if n > 0 {
		snap.CPUs = n
	}

	if vm, err := p.virtualMem(ctx); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("virtual memory: %w", err))
	} else if vm != nil {
		snap.MemoryTotal = vm.Total
	}

	return snap, merr.ErrorOrNil()
}
