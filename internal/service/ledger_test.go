package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

func TestRecordMovement_OutAdjustsStockAndRollup(t *testing.T) {
	f := newFakeStore()
	flour := f.addProduct("Flour", enum.ProductTypeRawMaterial, "0", "0.20", "50")
	origin := MovementOrigin{Kind: enum.OriginKindOrder, ID: pgtype.UUID{Bytes: flour, Valid: true}}

	err := recordMovement(context.Background(), f, flour, enum.MovementOpOut,
		decimal.NewFromInt(6), enum.MovementReasonOrder, "order #1", origin)
	if err != nil {
		t.Fatalf("recordMovement: %v", err)
	}

	if !numericEquals(f.products[flour].StockQuantity, "44") {
		t.Errorf("stock = %v, want 44", numericToDecimal(f.products[flour].StockQuantity))
	}
	if len(f.movements) != 1 {
		t.Fatalf("got %d movements, want 1", len(f.movements))
	}
	m := f.movements[0]
	if m.Operation != enum.MovementOpOut || m.Reason != enum.MovementReasonOrder {
		t.Errorf("movement = %s/%s, want OUT/ORDER", m.Operation, m.Reason)
	}
	if m.OriginKind != enum.OriginKindOrder {
		t.Errorf("origin kind = %s, want ORDER", m.OriginKind)
	}

	day := f.days[flour]
	if !numericEquals(day.StartQty, "50") {
		t.Errorf("start_qty = %v, want 50", numericToDecimal(day.StartQty))
	}
	if !numericEquals(day.Sales, "6") {
		t.Errorf("sales = %v, want 6", numericToDecimal(day.Sales))
	}
	if !numericEquals(day.EndQty, "44") {
		t.Errorf("end_qty = %v, want 44", numericToDecimal(day.EndQty))
	}
}

func TestRecordMovement_ReturnLandsInReturnSales(t *testing.T) {
	f := newFakeStore()
	flour := f.addProduct("Flour", enum.ProductTypeRawMaterial, "0", "0.20", "44")

	err := recordMovement(context.Background(), f, flour, enum.MovementOpIn,
		decimal.NewFromInt(6), enum.MovementReasonOrderReturn, "", MovementOrigin{Kind: enum.OriginKindOrder})
	if err != nil {
		t.Fatalf("recordMovement: %v", err)
	}
	day := f.days[flour]
	if !numericEquals(day.ReturnSales, "6") {
		t.Errorf("return_sales = %v, want 6", numericToDecimal(day.ReturnSales))
	}
	if !numericEquals(day.Incoming, "0") {
		t.Errorf("incoming = %v, want 0", numericToDecimal(day.Incoming))
	}
	if !numericEquals(f.products[flour].StockQuantity, "50") {
		t.Errorf("stock = %v, want 50", numericToDecimal(f.products[flour].StockQuantity))
	}
}

func TestRecordMovement_PurchaseLandsInIncoming(t *testing.T) {
	f := newFakeStore()
	flour := f.addProduct("Flour", enum.ProductTypeRawMaterial, "0", "0.20", "10")

	err := recordMovement(context.Background(), f, flour, enum.MovementOpIn,
		decimal.NewFromInt(25), enum.MovementReasonPurchase, "", MovementOrigin{Kind: enum.OriginKindPurchaseInvoice})
	if err != nil {
		t.Fatalf("recordMovement: %v", err)
	}
	if !numericEquals(f.days[flour].Incoming, "25") {
		t.Errorf("incoming = %v, want 25", numericToDecimal(f.days[flour].Incoming))
	}
}

func TestRecordMovement_WasteLandsInReturnWaste(t *testing.T) {
	f := newFakeStore()
	milk := f.addProduct("Milk", enum.ProductTypeRawMaterial, "0", "0.50", "10")

	err := recordMovement(context.Background(), f, milk, enum.MovementOpOut,
		decimal.NewFromInt(2), enum.MovementReasonWaste, "spoiled", MovementOrigin{Kind: enum.OriginKindWaste})
	if err != nil {
		t.Fatalf("recordMovement: %v", err)
	}
	day := f.days[milk]
	if !numericEquals(day.ReturnWaste, "2") {
		t.Errorf("return_waste = %v, want 2", numericToDecimal(day.ReturnWaste))
	}
	if !numericEquals(day.Sales, "0") {
		t.Errorf("sales = %v, want 0", numericToDecimal(day.Sales))
	}
}

func TestRecordMovement_ClosedDayRejected(t *testing.T) {
	f := newFakeStore()
	flour := f.addProduct("Flour", enum.ProductTypeRawMaterial, "0", "0.20", "50")
	f.closedDays[flour] = true

	err := recordMovement(context.Background(), f, flour, enum.MovementOpOut,
		decimal.NewFromInt(1), enum.MovementReasonOrder, "", MovementOrigin{Kind: enum.OriginKindOrder})
	if !errors.Is(err, ErrDayClosed) {
		t.Fatalf("expected ErrDayClosed, got: %v", err)
	}
}

func TestRecordMovement_InvalidInputs(t *testing.T) {
	f := newFakeStore()
	flour := f.addProduct("Flour", enum.ProductTypeRawMaterial, "0", "0.20", "50")
	origin := MovementOrigin{Kind: enum.OriginKindManual}

	cases := []struct {
		name      string
		operation string
		qty       string
		reason    string
	}{
		{"bad operation", "SIDEWAYS", "1", enum.MovementReasonManual},
		{"bad reason", enum.MovementOpIn, "1", "FELL_OFF_TRUCK"},
		{"zero quantity", enum.MovementOpIn, "0", enum.MovementReasonManual},
		{"negative quantity", enum.MovementOpOut, "-2", enum.MovementReasonManual},
	}
	for _, c := range cases {
		err := recordMovement(context.Background(), f, flour, c.operation, dec(c.qty), c.reason, "", origin)
		if !errors.Is(err, ErrInvalidMovement) {
			t.Errorf("%s: expected ErrInvalidMovement, got: %v", c.name, err)
		}
	}
}

func TestRemoveStock_MultipleItemsAccumulateSameDay(t *testing.T) {
	f := newFakeStore()
	flour := f.addProduct("Flour", enum.ProductTypeRawMaterial, "0", "0.20", "50")
	origin := MovementOrigin{Kind: enum.OriginKindOrder}

	items := []StockItem{{ProductID: flour, Quantity: decimal.NewFromInt(6)}}
	if err := removeStock(context.Background(), f, items, enum.MovementReasonOrder, "order #1", origin); err != nil {
		t.Fatalf("removeStock: %v", err)
	}
	if err := removeStock(context.Background(), f, items, enum.MovementReasonOrder, "order #2", origin); err != nil {
		t.Fatalf("removeStock: %v", err)
	}

	day := f.days[flour]
	if !numericEquals(day.Sales, "12") {
		t.Errorf("sales = %v, want 12", numericToDecimal(day.Sales))
	}
	if !numericEquals(day.StartQty, "50") {
		t.Errorf("start_qty = %v, want 50 (unchanged after first row)", numericToDecimal(day.StartQty))
	}
	if !numericEquals(day.EndQty, "38") {
		t.Errorf("end_qty = %v, want 38", numericToDecimal(day.EndQty))
	}
}
