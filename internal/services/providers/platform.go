package providers

import (
	"context"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// Platform reports a machine snapshot taken once at startup.
type Platform struct {
	value domain.Value
}

func NewPlatform(p domain.Platform) *Platform {
	return &Platform{value: domain.Object(
		domain.F("os", domain.String(p.OS)),
		domain.F("platform", domain.String(p.Platform)),
		domain.F("platformVersion", domain.String(p.PlatformVersion)),
		domain.F("kernelArch", domain.String(p.KernelArch)),
		domain.F("cpus", domain.Int(int64(p.CPUs))),
		domain.F("memoryTotal", domain.Int(int64(p.MemoryTotal))), // #nosec G115
	)}
}

func (p *Platform) Get(context.Context, *domain.SubmissionContext) (domain.Value, error) {
	return p.value, nil
}
