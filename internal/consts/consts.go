package consts

const (
	// RequestId 请求id名称
	RequestId = "request_id"

	TimeLayout = "2006-01-02 15:04:05"

	// 信号id派生格式 {strategy}_{yyyyMMdd}_{HHmmss}_{seq}
	SignalIDDateLayout = "20060102"
	SignalIDTimeLayout = "150405"

	// redis幂等缓存前缀
	SignalDecisionPrefix = "Signal_Decision:"
)
