package normalizer

import (
	"errors"
	"testing"
	"time"

	"tradeflow/internal/model"
)

func fixedClock() func() time.Time {
	ts := time.Date(2025, 8, 12, 10, 30, 1, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestNormalizeSingleLeg(t *testing.T) {
	n := New()
	payload := []byte(`{
		"signal_id": "momentum_v2_20250812_103001_001",
		"strategy_id": "momentum_v2",
		"instrument": "AAPL",
		"direction": "LONG",
		"action": "BUY",
		"order_type": "MARKET",
		"price": 175.5,
		"signal_type": "ENTRY",
		"some_future_field": true
	}`)

	sig, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize err: %v", err)
	}
	if sig.SignalID != "momentum_v2_20250812_103001_001" {
		t.Errorf("signal_id = %s", sig.SignalID)
	}
	if sig.Instrument != "AAPL" || sig.Action != model.ActionBuy || sig.Direction != model.DirectionLong {
		t.Errorf("unexpected fields: %+v", sig)
	}
	if sig.SignalType != model.SignalEntry {
		t.Errorf("signal_type = %s", sig.SignalType)
	}
}

func TestNormalizeAliases(t *testing.T) {
	n := New()
	// TradingView风格的字段名
	payload := []byte(`{"strategy":"tv-breakout-v2","symbol":"BTC/USDT","side":"buy","price":65000}`)

	sig, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize err: %v", err)
	}
	if sig.StrategyID != "tv-breakout-v2" {
		t.Errorf("strategy_id = %s", sig.StrategyID)
	}
	if sig.Instrument != "BTC/USDT" {
		t.Errorf("instrument = %s", sig.Instrument)
	}
	if sig.Action != model.ActionBuy {
		t.Errorf("action = %s", sig.Action)
	}
	// 缺省值
	if sig.OrderType != model.OrderTypeMarket {
		t.Errorf("order_type = %s", sig.OrderType)
	}
	if sig.Direction != model.DirectionLong {
		t.Errorf("direction = %s", sig.Direction)
	}
}

func TestNormalizeArrayWrapped(t *testing.T) {
	n := New()
	payload := []byte(`[{"strategy":"s1","instrument":"EUR/USD","action":"SELL","price":1.09}]`)

	sig, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize err: %v", err)
	}
	if sig.Instrument != "EUR/USD" || sig.Action != model.ActionSell {
		t.Errorf("unexpected fields: %+v", sig)
	}
	if sig.Direction != model.DirectionShort {
		t.Errorf("direction = %s", sig.Direction)
	}
}

func TestNormalizeMultiLeg(t *testing.T) {
	n := New()
	payload := []byte(`{
		"strategy_id": "spread_v1",
		"legs": [
			{"instrument":"AAPL","action":"BUY","quantity":10,"price":175.5},
			{"instrument":"MSFT","action":"SELL","quantity":5,"price":430.1}
		]
	}`)

	sig, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize err: %v", err)
	}
	// 顶层缺失从第一腿补齐
	if sig.Instrument != "AAPL" || sig.Action != model.ActionBuy {
		t.Errorf("unexpected fields: %+v", sig)
	}
	if sig.Price != 175.5 || sig.Quantity != 10 {
		t.Errorf("price/quantity = %v/%v", sig.Price, sig.Quantity)
	}
	if !sig.MultiLeg() {
		t.Error("expected multi-leg signal")
	}
}

func TestNormalizeMalformed(t *testing.T) {
	n := New()
	cases := []string{
		`{"strategy_id":"s1","action":"BUY"}`,        // 缺instrument
		`{"strategy_id":"s1","instrument":"AAPL"}`,   // 缺action
		`{"instrument":"AAPL","action":"HOLD"}`,      // 非法action
		`not-json`,                                   // 坏报文
		`[]`,                                         // 空数组
	}
	for _, c := range cases {
		if _, err := n.Normalize([]byte(c)); !errors.Is(err, model.ErrMalformedSignal) {
			t.Errorf("payload %s: want ErrMalformedSignal, got %v", c, err)
		}
	}
}

func TestDeriveID(t *testing.T) {
	n := NewWithClock(fixedClock())
	payload := []byte(`{"strategy_id":"momentum_v2","instrument":"AAPL","action":"BUY","price":175.5}`)

	first, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize err: %v", err)
	}
	second, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize err: %v", err)
	}

	if first.SignalID != "momentum_v2_20250812_103001_001" {
		t.Errorf("first id = %s", first.SignalID)
	}
	// 同策略同一秒内序号递增
	if second.SignalID != "momentum_v2_20250812_103001_002" {
		t.Errorf("second id = %s", second.SignalID)
	}
}

func TestIdentify(t *testing.T) {
	n := NewWithClock(fixedClock())

	// 缺instrument的坏报文，id原样提取
	id, strategy, _ := n.Identify([]byte(`{"signal_id":"bad_001","strategy_id":"s1","price":100}`))
	if id != "bad_001" || strategy != "s1" {
		t.Errorf("id=%s strategy=%s", id, strategy)
	}

	// 只有strategy时派生id
	id, _, _ = n.Identify([]byte(`{"strategy":"s2","action":"HOLD"}`))
	if id != "s2_20250812_103001_001" {
		t.Errorf("derived id = %s", id)
	}

	// 非JSON报文无身份可提
	id, strategy, instrument := n.Identify([]byte(`not-json`))
	if id != "" || strategy != "" || instrument != "" {
		t.Errorf("got %q/%q/%q", id, strategy, instrument)
	}
}

func TestMetadataString(t *testing.T) {
	meta := map[string]any{
		"original_signal": map[string]any{"signal_type": "SCALE_IN"},
	}
	if got := MetadataString(meta, "original_signal", "signal_type"); got != "SCALE_IN" {
		t.Errorf("got %s", got)
	}
	if got := MetadataString(meta, "missing", "key"); got != "" {
		t.Errorf("got %s", got)
	}
	if got := MetadataString(nil, "any"); got != "" {
		t.Errorf("got %s", got)
	}
}
