package twig

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

//PressurePredicate tells the executor to stop issuing new work while it reports true
type PressurePredicate interface {
	ShouldSuspend() bool
}

//PressureFunc adapts a plain function to PressurePredicate
type PressureFunc func() bool

func (f PressureFunc) ShouldSuspend() bool {
	return f()
}

//NoPressure never suspends
var NoPressure PressurePredicate = PressureFunc(func() bool { return false })

//MemoryPressure suspends while the fraction of available system memory is below MinAvailable
type MemoryPressure struct {
	MinAvailable float64
	stat         func() (*mem.VirtualMemoryStat, error)
}

//NewMemoryPressure new instance, minAvailable is a ratio in (0, 1)
func NewMemoryPressure(minAvailable float64) *MemoryPressure {
	return &MemoryPressure{MinAvailable: minAvailable, stat: mem.VirtualMemory}
}

func (p *MemoryPressure) ShouldSuspend() bool {
	stat := p.stat
	if stat == nil {
		stat = mem.VirtualMemory
	}
	vm, err := stat()
	if err != nil {
		logger.Warn(context.Background(), "read virtual memory failed, pressure ignored, err:%v", err)
		return false
	}
	if vm.Total == 0 {
		return false
	}
	return float64(vm.Available)/float64(vm.Total) < p.MinAvailable
}

//HeapPressure suspends while the Go heap in use reaches Limit bytes
type HeapPressure struct {
	Limit uint64
}

func (p *HeapPressure) ShouldSuspend() bool {
	if p.Limit == 0 {
		return false
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse >= p.Limit
}

//AnyPressure suspends while any of its predicates does
type AnyPressure []PressurePredicate

func (ps AnyPressure) ShouldSuspend() bool {
	for _, p := range ps {
		if p != nil && p.ShouldSuspend() {
			return true
		}
	}
	return false
}
