package booking

import (
	"context"
	"testing"
)

func TestNumberingSequences(t *testing.T) {
	store := newMemStore()
	n := NewNumberingService(store)
	ctx := context.Background()

	for _, want := range []string{"OR-1001", "OR-1002", "OR-1003"} {
		got, err := n.NextReceiptNumber(ctx)
		if err != nil {
			t.Fatalf("NextReceiptNumber: %v", err)
		}
		if got != want {
			t.Errorf("receipt = %s, want %s", got, want)
		}
	}

	// The voucher counter advances independently.
	got, err := n.NextVoucherNumber(ctx)
	if err != nil {
		t.Fatalf("NextVoucherNumber: %v", err)
	}
	if got != "PV-5001" {
		t.Errorf("voucher = %s, want PV-5001", got)
	}
	if store.settings.Documents.ReceiptNextNumber != 1004 {
		t.Errorf("receipt counter = %d, want 1004", store.settings.Documents.ReceiptNextNumber)
	}
}

func TestNumberingCustomPrefix(t *testing.T) {
	store := newMemStore()
	store.settings.Documents = DocumentSettings{
		ReceiptPrefix:     "RCT/2024/",
		ReceiptNextNumber: 77,
		VoucherPrefix:     "V",
		VoucherNextNumber: 1,
	}
	n := NewNumberingService(store)

	got, err := n.NextReceiptNumber(context.Background())
	if err != nil {
		t.Fatalf("NextReceiptNumber: %v", err)
	}
	if got != "RCT/2024/77" {
		t.Errorf("receipt = %s, want RCT/2024/77", got)
	}
}
