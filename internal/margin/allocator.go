package margin

import "context"

// Allocator 组合资金分配来源：返回策略的资金分配比例(0~1)
// 解析不到时由闸门落到default_position_size_pct并打低置信标记
type Allocator interface {
	Resolve(ctx context.Context, strategy string) (pct float64, ok bool, err error)
}

// ConfigAllocator 配置文件驱动的分配表
type ConfigAllocator struct {
	allocations map[string]float64
}

func NewConfigAllocator(allocations map[string]float64) *ConfigAllocator {
	return &ConfigAllocator{allocations: allocations}
}

func (a *ConfigAllocator) Resolve(_ context.Context, strategy string) (float64, bool, error) {
	pct, ok := a.allocations[strategy]
	if !ok || pct <= 0 {
		return 0, false, nil
	}
	return pct, true, nil
}
