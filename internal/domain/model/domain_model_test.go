package model

import (
	"testing"
	"time"
)

func TestNormalizeCustomerID(t *testing.T) {
	cases := map[string]string{
		"+98 912 345 6789": "+989123456789",
		"0098 912-345":     "+98912345",
		"  555123  ":       "555123",
		"abc":              "",
		// Telegram group chats have negative ids; the sign must survive so
		// outbound sends still parse back to the right chat.
		"-1001234567890": "-1001234567890",
		"-42":            "-42",
	}
	for in, want := range cases {
		if got := NormalizeCustomerID(in); got != want {
			t.Errorf("NormalizeCustomerID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeReplyID(t *testing.T) {
	it, ok := DecodeReplyID("category_12")
	if !ok || it.Type != IntentBrowseCategory || it.Slot(SlotCategoryID) != "12" {
		t.Fatalf("category_12 decoded to %+v ok=%v", it, ok)
	}
	if it.Confidence != 1.0 || !it.Structured() {
		t.Fatalf("structured reply must have confidence 1.0, got %v", it.Confidence)
	}

	it, ok = DecodeReplyID("qty_3")
	if !ok || it.Type != IntentSetQuantity || it.Slot(SlotQuantity) != "3" {
		t.Fatalf("qty_3 decoded to %+v ok=%v", it, ok)
	}

	it, ok = DecodeReplyID("pay_cod")
	if !ok || it.Type != IntentChoosePayment || it.Slot(SlotPayMethod) != "cod" {
		t.Fatalf("pay_cod decoded to %+v ok=%v", it, ok)
	}

	for _, bad := range []string{"", "qty_x", "qty_-1", "product_", "bogus_7"} {
		if _, ok := DecodeReplyID(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestIntentPruneSlots(t *testing.T) {
	it := Intent{Type: IntentViewProduct, Slots: map[string]string{
		SlotProductID: "42",
		SlotAddress:   "should be dropped",
	}}
	it.PruneSlots()
	if it.Slot(SlotProductID) != "42" {
		t.Fatal("declared slot was dropped")
	}
	if _, ok := it.Slots[SlotAddress]; ok {
		t.Fatal("undeclared slot survived pruning")
	}
}

func TestJobFailFollowsBackoffSchedule(t *testing.T) {
	now := time.Now()
	j := NewJob("j1", "sync_stock", nil, now)

	var delays []time.Duration
	for attempt := 1; ; attempt++ {
		retry := j.Fail("boom", now)
		if !retry {
			break
		}
		delays = append(delays, j.NextRetryAt.Sub(now))
	}

	if j.Status != JobStatusAbandoned {
		t.Fatalf("status = %s, want abandoned", j.Status)
	}
	if j.RetryCount != DefaultMaxRetries {
		t.Fatalf("retry count = %d, want %d", j.RetryCount, DefaultMaxRetries)
	}
	want := []time.Duration{60 * time.Second, 300 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("got %d retries before abandon, want %d", len(delays), len(want))
	}
	for i, d := range delays {
		if d != want[i] {
			t.Errorf("delay %d = %s, want %s", i+1, d, want[i])
		}
		if i > 0 && d < delays[i-1] {
			t.Errorf("backoff not monotonic: %s after %s", d, delays[i-1])
		}
	}
}

func TestBackoffDelayClamps(t *testing.T) {
	if BackoffDelay(0) != 60*time.Second {
		t.Error("attempt 0 should clamp to first delay")
	}
	if BackoffDelay(99) != 900*time.Second {
		t.Error("large attempts should clamp to last delay")
	}
	if BackoffDelay(2) != 300*time.Second {
		t.Error("attempt 2 should be 300s")
	}
}

func TestConversationMergeContext(t *testing.T) {
	c := NewConversation("+15551234", time.Now())
	c.MergeContext(map[string]string{"category_id": "12", "product_id": "7"})
	c.MergeContext(map[string]string{"product_id": ""})
	if c.Ctx("category_id") != "12" {
		t.Fatal("kept key lost")
	}
	if _, ok := c.Context["product_id"]; ok {
		t.Fatal("empty patch value must delete the key")
	}
	if c.State != StateIdle {
		t.Fatal("new conversation must start IDLE")
	}
}

func TestCartTotal(t *testing.T) {
	c := Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 2, UnitPrice: 150},
		{ProductID: "b", Quantity: 1, UnitPrice: 99},
	}}
	if c.Total() != 399 {
		t.Fatalf("total = %d, want 399", c.Total())
	}
	if c.Find("a", "") == nil || c.Find("zzz", "") != nil {
		t.Fatal("Find misbehaves")
	}
}
