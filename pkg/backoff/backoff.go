package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy 重试退避策略：固定基础间隔+可选抖动
// 注入到store层，测试时可把BaseDelay调成0避免真实sleep
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

// Default 对应仓位查询的默认策略：3次，固定500ms
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) delay() time.Duration {
	d := p.BaseDelay
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// Retry 执行fn直到成功或次数耗尽，返回最后一次错误
// ctx取消时立即终止，不再吞掉剩余重试
func (p Policy) Retry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < p.attempts(); i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == p.attempts()-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay()):
		}
	}
	return err
}
