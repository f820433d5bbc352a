package ecode

// 业务错误码，0表示成功
const (
	Success = 0

	// 通用错误
	InternalErr    = 10001
	InvalidParams  = 10002
	RequireAuthErr = 10003
	TooManyRequest = 10004

	// 信号处理
	MalformedSignal     = 20001
	SignalExpired       = 20002
	AmbiguousSignalType = 20003

	// 仓位/存储
	StoreUnavailable = 21001
	PositionConflict = 21002

	// 资金/保证金
	MarginLimitExceeded   = 22001
	InsufficientMargin    = 22002
	InvalidPrice          = 22003
	UnsupportedInstrument = 22004

	// 券商
	BrokerUnavailable = 23001
	BrokerAPIErr      = 23002
)

var messages = map[int]string{
	Success:               "ok",
	InternalErr:           "internal error",
	InvalidParams:         "invalid request params",
	RequireAuthErr:        "authentication required",
	TooManyRequest:        "too many requests",
	MalformedSignal:       "malformed signal payload",
	SignalExpired:         "signal expired",
	AmbiguousSignalType:   "ambiguous signal type",
	StoreUnavailable:      "position store unavailable",
	PositionConflict:      "concurrent position update conflict",
	MarginLimitExceeded:   "margin utilization limit exceeded",
	InsufficientMargin:    "insufficient margin headroom",
	InvalidPrice:          "invalid signal price",
	UnsupportedInstrument: "margin rate unavailable for instrument type",
	BrokerUnavailable:     "broker connection unavailable",
	BrokerAPIErr:          "broker api error",
}

// Message 返回错误码对应的默认提示
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "unknown error"
}
