package model

import (
	"errors"
	"fmt"
)

// 管道内的错误分类：
// 本地校验错误立即产生REJECTED决策；网络类错误有限重试后带原因码落决策；
// 业务规则拒绝只产生Decision，不向外抛异常
var (
	ErrMalformedSignal  = errors.New("malformed signal: missing mandatory fields")
	ErrStoreUnavailable = errors.New("position store unavailable")
	ErrBrokerNotReady   = errors.New("broker not connected")
)

// BrokerAPIError 券商接口错误，下单类错误不自动重试（重复下单风险大于收益）
type BrokerAPIError struct {
	Code    string
	Message string
}

func (e *BrokerAPIError) Error() string {
	return fmt.Sprintf("broker api error [%s]: %s", e.Code, e.Message)
}
