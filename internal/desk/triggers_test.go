package desk

import "testing"

func TestWantsTicket(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"I will create a ticket for you.", true},
		{"We should Create A Ticket to track this.", true},
		{"Try restarting the VPN client first.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := WantsTicket(tc.reply); got != tc.want {
			t.Errorf("WantsTicket(%q) = %v, want %v", tc.reply, got, tc.want)
		}
	}
}

func TestReimbursementAmount(t *testing.T) {
	cases := []struct {
		query      string
		wantAmount float64
		wantOK     bool
	}{
		{"I need a reimbursement of 6000 for travel", 6000, true},
		{"reimbursement claim for 125.50", 125.50, true},
		{"I spent 6000 on travel", 0, false},
		{"reimbursement procedure please", 0, false},
		// First number wins even when it is not the amount.
		{"reimbursement from March 12 for 6000", 12, true},
	}
	for _, tc := range cases {
		amount, ok := ReimbursementAmount(tc.query)
		if ok != tc.wantOK || amount != tc.wantAmount {
			t.Errorf("ReimbursementAmount(%q) = %v, %v, want %v, %v",
				tc.query, amount, ok, tc.wantAmount, tc.wantOK)
		}
	}
}
