package repository

import "testing"

func TestWhereClause(t *testing.T) {
	tests := []struct {
		name     string
		f        Filter
		want     string
		wantArgs int
	}{
		{"empty", Filter{}, "", 0},
		{"user", Filter{UserID: "u1"}, " WHERE user_id = $1", 1},
		{"action and resource", Filter{Action: "login_success", Resource: "session"}, " WHERE action = $1 AND resource = $2", 2},
		{"all", Filter{UserID: "u1", Action: "a", Resource: "r"}, " WHERE user_id = $1 AND action = $2 AND resource = $3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args := whereClause(tt.f)
			if got != tt.want {
				t.Errorf("where = %q, want %q", got, tt.want)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}
