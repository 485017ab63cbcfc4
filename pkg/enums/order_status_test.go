package enums

import "testing"

func TestOrderStatusForwardOnly(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPendingPayment, OrderStatusWaiting, true},
		{OrderStatusWaiting, OrderStatusManufacturing, true},
		{OrderStatusManufacturing, OrderStatusManufacturing, true},
		{OrderStatusShipping, OrderStatusWaiting, false},
		{OrderStatusDelivered, OrderStatusPendingPayment, false},
		{OrderStatusWaiting, OrderStatusCancelled, true},
		{OrderStatusManufacturing, OrderStatusRefunded, true},
		{OrderStatusCancelled, OrderStatusWaiting, false},
		{OrderStatusCancelled, OrderStatusRefunded, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("WAITING")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OrderStatusWaiting {
		t.Fatalf("expected WAITING got %s", status)
	}
	if _, err := ParseOrderStatus("waiting"); err == nil {
		t.Fatalf("expected case-sensitive parse failure")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	method, err := ParsePaymentMethod("paypal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != PaymentMethodPayPal {
		t.Fatalf("expected paypal got %s", method)
	}
	if _, err := ParsePaymentMethod("stripe"); err == nil {
		t.Fatalf("expected unknown method to fail")
	}
}
