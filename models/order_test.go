package models

import "testing"

func TestOrderStateMachine(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderStatusProcessing, OrderStatusConfirmed},
		{OrderStatusConfirmed, OrderStatusPreparing},
		{OrderStatusConfirmed, OrderStatusOutForDelivery},
		{OrderStatusPreparing, OrderStatusOutForDelivery},
		{OrderStatusOutForDelivery, OrderStatusDelivered},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be allowed", tr[0], tr[1])
		}
	}

	// Cancellation is reachable from every non-terminal state.
	for _, from := range []OrderStatus{OrderStatusProcessing, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusOutForDelivery} {
		if !CanTransition(from, OrderStatusCancelled) {
			t.Errorf("%s -> cancelled should be allowed", from)
		}
	}

	// Terminal states admit nothing.
	for _, from := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		if !from.IsTerminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range []OrderStatus{OrderStatusProcessing, OrderStatusConfirmed, OrderStatusCancelled, OrderStatusDelivered} {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should be rejected", from, to)
			}
		}
	}

	if CanTransition(OrderStatusProcessing, OrderStatusOutForDelivery) {
		t.Error("processing must not skip straight to out_for_delivery")
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusProcessing, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled} {
		if !IsValidOrderStatus(s) {
			t.Errorf("%s should be recognized", s)
		}
	}
	if IsValidOrderStatus("shipped") {
		t.Error("unknown status should be rejected")
	}
}

func TestIsValidDeliveryMethod(t *testing.T) {
	for _, m := range []DeliveryMethod{DeliveryMethodStandard, DeliveryMethodExpress, DeliveryMethodPickup} {
		if !IsValidDeliveryMethod(m) {
			t.Errorf("%s should be recognized", m)
		}
	}
	if IsValidDeliveryMethod("drone") {
		t.Error("unknown method should be rejected")
	}
}
