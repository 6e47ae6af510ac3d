package domain

import "testing"

func TestMapGatewayState(t *testing.T) {
	cases := []struct {
		state      string
		want       PaymentOrderStatus
		recognized bool
	}{
		{"COMPLETED", PaymentOrderStatusCompleted, true},
		{"FAILED", PaymentOrderStatusFailed, true},
		{"PENDING", PaymentOrderStatusPending, true},
		// 开放词表：未识别的状态按 pending 处理
		{"EXPIRED", PaymentOrderStatusPending, false},
		{"completed", PaymentOrderStatusPending, false},
		{"", PaymentOrderStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			got, recognized := MapGatewayState(tc.state)
			if got != tc.want {
				t.Errorf("MapGatewayState(%q) = %q, want %q", tc.state, got, tc.want)
			}
			if recognized != tc.recognized {
				t.Errorf("MapGatewayState(%q) recognized = %v, want %v", tc.state, recognized, tc.recognized)
			}
		})
	}
}
