package report

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// Host describes the machine the collaborators ran on.
type Host struct {
	CPUModel     string `json:"cpu_model" yaml:"cpu_model"`
	LogicalCPUs  int    `json:"cpu_logical" yaml:"cpu_logical"`
	PhysicalCPUs int    `json:"cpu_physical" yaml:"cpu_physical"`
	OS           string `json:"os" yaml:"os"`
	Platform     string `json:"platform" yaml:"platform"`
	Arch         string `json:"arch" yaml:"arch"`
}

// CollectHost gathers host details. Fields that cannot be read are left
// empty; the error reports the first failure.
func CollectHost(ctx context.Context) (Host, error) {
	h := Host{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if infos, err := cpu.InfoWithContext(ctx); err != nil {
		keep(fmt.Errorf("cpu info: %w", err))
	} else if len(infos) > 0 {
		h.CPUModel = infos[0].ModelName
	}

	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		keep(fmt.Errorf("logical cpu count: %w", err))
	} else {
		h.LogicalCPUs = n
	}

	if n, err := cpu.CountsWithContext(ctx, false); err != nil {
		keep(fmt.Errorf("physical cpu count: %w", err))
	} else {
		h.PhysicalCPUs = n
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		keep(fmt.Errorf("host info: %w", err))
	} else {
		h.Platform = info.Platform + " " + info.PlatformVersion
	}

	return h, firstErr
}
