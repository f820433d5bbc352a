package classifier

import (
	"context"
	"testing"

	"tradeflow/internal/model"
	"tradeflow/internal/store"
)

func seedPosition(t *testing.T, s *store.MemoryStore, strategy, instrument string, dir model.Direction, side model.Action, qty, price float64) {
	t.Helper()
	sig := &model.Signal{StrategyID: strategy, Instrument: instrument, Direction: dir}
	ord := &model.Order{OrderID: "seed-" + strategy + "-" + instrument + "-" + string(dir), Side: side, Quantity: qty, AvgFillPrice: price}
	if _, err := s.ApplyFill(context.Background(), sig, ord); err != nil {
		t.Fatalf("seed position: %v", err)
	}
}

func TestClassifyExplicitWins(t *testing.T) {
	ms := store.NewMemoryStore()
	// 有同向持仓，按推断应该是SCALE_IN，但显式EXIT必须赢
	seedPosition(t, ms, "s1", "AAPL", model.DirectionLong, model.ActionBuy, 10, 100)
	c := New(ms)

	sig := &model.Signal{
		StrategyID: "s1", Instrument: "AAPL",
		Direction: model.DirectionLong, Action: model.ActionBuy,
		SignalType: model.SignalExit,
	}
	res, err := c.Classify(context.Background(), sig)
	if err != nil {
		t.Fatalf("Classify err: %v", err)
	}
	if res.Type != model.SignalExit || !res.Explicit {
		t.Errorf("got %s explicit=%v", res.Type, res.Explicit)
	}
}

func TestClassifyExplicitFromMetadata(t *testing.T) {
	c := New(store.NewMemoryStore())
	sig := &model.Signal{
		StrategyID: "s1", Instrument: "AAPL",
		Direction: model.DirectionLong, Action: model.ActionBuy,
		Metadata: map[string]any{
			"original_signal": map[string]any{"signal_type": "scale_in"},
		},
	}
	res, err := c.Classify(context.Background(), sig)
	if err != nil {
		t.Fatalf("Classify err: %v", err)
	}
	if res.Type != model.SignalScaleIn || !res.Explicit {
		t.Errorf("got %s explicit=%v", res.Type, res.Explicit)
	}
}

func TestClassifyInference(t *testing.T) {
	ctx := context.Background()

	t.Run("no position means entry", func(t *testing.T) {
		c := New(store.NewMemoryStore())
		sig := &model.Signal{StrategyID: "s1", Instrument: "AAPL", Direction: model.DirectionLong, Action: model.ActionBuy}
		res, _ := c.Classify(ctx, sig)
		if res.Type != model.SignalEntry {
			t.Errorf("got %s", res.Type)
		}
	})

	t.Run("reinforcing action scales in", func(t *testing.T) {
		ms := store.NewMemoryStore()
		seedPosition(t, ms, "s1", "AAPL", model.DirectionLong, model.ActionBuy, 10, 100)
		c := New(ms)
		sig := &model.Signal{StrategyID: "s1", Instrument: "AAPL", Direction: model.DirectionLong, Action: model.ActionBuy}
		res, _ := c.Classify(ctx, sig)
		if res.Type != model.SignalScaleIn {
			t.Errorf("got %s", res.Type)
		}
		if res.SamePosition == nil {
			t.Error("expected same-direction snapshot")
		}
	})

	t.Run("reducing action scales out", func(t *testing.T) {
		ms := store.NewMemoryStore()
		seedPosition(t, ms, "s1", "AAPL", model.DirectionLong, model.ActionBuy, 10, 100)
		c := New(ms)
		sig := &model.Signal{StrategyID: "s1", Instrument: "AAPL", Direction: model.DirectionLong, Action: model.ActionSell}
		res, _ := c.Classify(ctx, sig)
		if res.Type != model.SignalScaleOut {
			t.Errorf("got %s", res.Type)
		}
	})

	t.Run("opposite position only means exit", func(t *testing.T) {
		ms := store.NewMemoryStore()
		seedPosition(t, ms, "s1", "AAPL", model.DirectionLong, model.ActionBuy, 10, 100)
		c := New(ms)
		// 反手信号：方向SHORT，反向LONG有持仓
		sig := &model.Signal{StrategyID: "s1", Instrument: "AAPL", Direction: model.DirectionShort, Action: model.ActionSell}
		res, _ := c.Classify(ctx, sig)
		if res.Type != model.SignalExit {
			t.Errorf("got %s", res.Type)
		}
		if res.OppositePosition == nil {
			t.Error("expected opposite-direction snapshot")
		}
	})

	t.Run("scoped by strategy and instrument", func(t *testing.T) {
		ms := store.NewMemoryStore()
		seedPosition(t, ms, "other", "AAPL", model.DirectionLong, model.ActionBuy, 10, 100)
		c := New(ms)
		sig := &model.Signal{StrategyID: "s1", Instrument: "AAPL", Direction: model.DirectionLong, Action: model.ActionBuy}
		res, _ := c.Classify(ctx, sig)
		if res.Type != model.SignalEntry {
			t.Errorf("got %s", res.Type)
		}
	})
}
