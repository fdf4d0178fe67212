package provider

import "testing"

func TestClassifySuccess(t *testing.T) {
	cases := []struct {
		name   string
		result *StatusResult
		want   bool
	}{
		{name: "nil result", result: nil, want: false},
		{name: "paid", result: &StatusResult{Success: true, Status: "paid"}, want: true},
		{name: "completed upper", result: &StatusResult{Success: true, Status: "COMPLETED"}, want: true},
		{name: "success mixed", result: &StatusResult{Success: true, Status: "Success"}, want: true},
		{name: "padded", result: &StatusResult{Success: true, Status: " paid "}, want: false},
		{name: "paid without success flag", result: &StatusResult{Success: false, Status: "paid"}, want: false},
		{name: "empty status", result: &StatusResult{Success: true}, want: false},
		{name: "pending", result: &StatusResult{Success: true, Status: "pending"}, want: false},
		{name: "failed", result: &StatusResult{Success: true, Status: "failed"}, want: false},
		{name: "unknown", result: &StatusResult{Success: true, Status: "settled-ish"}, want: false},
		{name: "unpaid", result: &StatusResult{Success: true, Status: "unpaid"}, want: false},
	}

	for _, tc := range cases {
		if got := ClassifySuccess(tc.result); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		if tc.result != nil && tc.result.Paid() != tc.want {
			t.Fatalf("%s: Paid() disagrees with ClassifySuccess", tc.name)
		}
	}
}

func TestIsFinalFailure(t *testing.T) {
	cases := []struct {
		name   string
		result *StatusResult
		want   bool
	}{
		{name: "nil result", result: nil, want: false},
		{name: "failed", result: &StatusResult{Success: true, Status: "failed"}, want: true},
		{name: "expired upper", result: &StatusResult{Success: true, Status: "EXPIRED"}, want: true},
		{name: "cancelled", result: &StatusResult{Success: true, Status: "cancelled"}, want: true},
		{name: "canceled", result: &StatusResult{Success: true, Status: "canceled"}, want: true},
		{name: "unpaid is open", result: &StatusResult{Success: true, Status: "unpaid"}, want: false},
		{name: "pending is open", result: &StatusResult{Success: true, Status: "pending"}, want: false},
		{name: "empty is open", result: &StatusResult{Success: true}, want: false},
		{name: "paid", result: &StatusResult{Success: true, Status: "paid"}, want: false},
		{name: "failed without success flag", result: &StatusResult{Success: false, Status: "failed"}, want: false},
	}

	for _, tc := range cases {
		if got := IsFinalFailure(tc.result); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
