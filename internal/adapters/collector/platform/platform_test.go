package platform

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/formmetrics/internal/domain"
)

func TestSnapshot_FromProbes(t *testing.T) {
	p := &Probe{
		hostInfo: func(context.Context) (*host.InfoStat, error) {
			return &host.InfoStat{OS: "linux", Platform: "debian", PlatformVersion: "12.5", KernelArch: "aarch64"}, nil
		},
		cpuCount:   func(context.Context, bool) (int, error) { return 12, nil },
		virtualMem: func(context.Context) (*mem.VirtualMemoryStat, error) { return &mem.VirtualMemoryStat{Total: 1 << 34}, nil },
	}

	got, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := domain.Platform{OS: "linux", Platform: "debian", PlatformVersion: "12.5", KernelArch: "aarch64", CPUs: 12, MemoryTotal: 1 << 34}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}
}

func TestSnapshot_PartialFailure(t *testing.T) {
	errHost := errors.New("no /etc/os-release")
	errMem := errors.New("no /proc/meminfo")
	p := &Probe{
		hostInfo:   func(context.Context) (*host.InfoStat, error) { return nil, errHost },
		cpuCount:   func(context.Context, bool) (int, error) { return 4, nil },
		virtualMem: func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errMem },
	}

	got, err := p.Snapshot(context.Background())
	if !errors.Is(err, errHost) || !errors.Is(err, errMem) {
		t.Fatalf("err=%v, want both probe failures", err)
	}
	if got.OS != runtime.GOOS || got.KernelArch != runtime.GOARCH || got.CPUs != 4 || got.MemoryTotal != 0 {
		t.Fatalf("fallbacks not applied: %+v", got)
	}
}

func TestSnapshot_RealHost(t *testing.T) {
	got, _ := New().Snapshot(context.Background())
	if got.OS == "" || got.CPUs <= 0 {
		t.Fatalf("implausible snapshot: %+v", got)
	}
}
