package store

import (
	"context"
	"testing"

	"tradeflow/internal/model"
)

func sigFor(strategy, instrument string, dir model.Direction) *model.Signal {
	return &model.Signal{StrategyID: strategy, Instrument: instrument, Direction: dir}
}

func fill(id string, side model.Action, qty, price float64) *model.Order {
	return &model.Order{OrderID: id, Side: side, Quantity: qty, AvgFillPrice: price}
}

func TestApplyFillAccumulatesVWAP(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sig := sigFor("s1", "AAPL", model.DirectionLong)

	if _, err := s.ApplyFill(ctx, sig, fill("o1", model.ActionBuy, 10, 100)); err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	pos, err := s.ApplyFill(ctx, sig, fill("o2", model.ActionBuy, 10, 110))
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if pos.Quantity != 20 {
		t.Errorf("quantity = %v", pos.Quantity)
	}
	// (10*100 + 10*110) / 20 = 105
	if pos.AvgEntryPrice != 105 {
		t.Errorf("avg price = %v", pos.AvgEntryPrice)
	}
}

func TestApplyFillIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sig := sigFor("s1", "AAPL", model.DirectionLong)

	first, _ := s.ApplyFill(ctx, sig, fill("o1", model.ActionBuy, 10, 100))
	// 同order_id重复回写不改变仓位
	again, err := s.ApplyFill(ctx, sig, fill("o1", model.ActionBuy, 10, 100))
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if again.Quantity != first.Quantity || again.AvgEntryPrice != first.AvgEntryPrice {
		t.Errorf("position changed on duplicate fill: %+v vs %+v", again, first)
	}
}

func TestApplyFillReduceAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sig := sigFor("s1", "AAPL", model.DirectionLong)

	s.ApplyFill(ctx, sig, fill("o1", model.ActionBuy, 10, 100))
	pos, err := s.ApplyFill(ctx, sig, fill("o2", model.ActionSell, 4, 110))
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if pos.Quantity != 6 || pos.Status != model.PositionOpen {
		t.Errorf("after partial reduce: %+v", pos)
	}

	pos, err = s.ApplyFill(ctx, sig, fill("o3", model.ActionSell, 6, 112))
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if pos.Status != model.PositionClosed || pos.Quantity != 0 {
		t.Errorf("after full close: %+v", pos)
	}
	if pos.OpenKey != nil {
		t.Error("closed position must release open key")
	}
	if pos.ClosedAt == nil {
		t.Error("closed position must carry close timestamp")
	}

	// 平仓后再开仓是全新记录
	fresh, err := s.ApplyFill(ctx, sig, fill("o4", model.ActionBuy, 5, 120))
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if fresh.ID == pos.ID {
		t.Error("reopen must create a new position record")
	}
	if fresh.Quantity != 5 || fresh.AvgEntryPrice != 120 || fresh.Status != model.PositionOpen {
		t.Errorf("reopened position: %+v", fresh)
	}
}

func TestApplyFillReducesOppositePosition(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// LONG持仓，反手信号方向SHORT但卖出应先减LONG
	s.ApplyFill(ctx, sigFor("s1", "AAPL", model.DirectionLong), fill("o1", model.ActionBuy, 10, 100))
	pos, err := s.ApplyFill(ctx, sigFor("s1", "AAPL", model.DirectionShort), fill("o2", model.ActionSell, 10, 105))
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if pos.Direction != model.DirectionLong || pos.Status != model.PositionClosed {
		t.Errorf("expected long position closed, got %+v", pos)
	}
}

func TestListOpenPositionsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.ApplyFill(ctx, sigFor("s1", "AAPL", model.DirectionLong), fill("o1", model.ActionBuy, 10, 100))
	s.ApplyFill(ctx, sigFor("s2", "MSFT", model.DirectionLong), fill("o2", model.ActionBuy, 5, 400))

	all, _ := s.ListOpenPositions(ctx, "")
	if len(all) != 2 {
		t.Errorf("all = %d", len(all))
	}
	scoped, _ := s.ListOpenPositions(ctx, "s1")
	if len(scoped) != 1 || scoped[0].StrategyID != "s1" {
		t.Errorf("scoped = %+v", scoped)
	}
}

func TestSaveDecisionOncePerSignal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	d := &model.Decision{SignalID: "sig-1", StrategyID: "s1", Outcome: model.DecisionApproved}
	existing, found, err := s.SaveDecision(ctx, d)
	if err != nil || found || existing != nil {
		t.Fatalf("first save: existing=%+v found=%v err=%v", existing, found, err)
	}

	dup := &model.Decision{SignalID: "sig-1", StrategyID: "s1", Outcome: model.DecisionRejected}
	existing, found, err = s.SaveDecision(ctx, dup)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !found || existing == nil || existing.Outcome != model.DecisionApproved {
		t.Errorf("duplicate save must return first decision, got found=%v %+v", found, existing)
	}

	got, _ := s.GetBySignalID(ctx, "sig-1")
	if got == nil || got.Outcome != model.DecisionApproved {
		t.Errorf("GetBySignalID = %+v", got)
	}
}

func TestListByStrategyLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SaveDecision(ctx, &model.Decision{SignalID: "a", StrategyID: "s1"})
	s.SaveDecision(ctx, &model.Decision{SignalID: "b", StrategyID: "s1"})
	s.SaveDecision(ctx, &model.Decision{SignalID: "c", StrategyID: "s2"})

	out, _ := s.ListByStrategy(ctx, "s1", 1)
	if len(out) != 1 || out[0].SignalID != "b" {
		t.Errorf("want newest s1 decision, got %+v", out)
	}
}

func TestOrderCreateUpdateLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	o := &model.Order{OrderID: "ord-1", SignalID: "sig-1", Status: model.OrderPending}
	if err := s.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	o.Status = model.OrderFilled
	if err := s.Update(ctx, o); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.GetOrderBySignalID(ctx, "sig-1")
	if got == nil || got.Status != model.OrderFilled {
		t.Errorf("order = %+v", got)
	}
}
