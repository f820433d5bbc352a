package model

// AccountState 账户资金快照
// 只由成交回写和余额轮询更新，保证金闸门只读
type AccountState struct {
	Equity          float64 `json:"equity"`
	CashBalance     float64 `json:"cash_balance"`
	MarginUsed      float64 `json:"margin_used"`
	MarginAvailable float64 `json:"margin_available"`
}

// MarginUtilization 当前保证金占用率
func (a AccountState) MarginUtilization() float64 {
	if a.Equity <= 0 {
		return 0
	}
	return a.MarginUsed / a.Equity
}
