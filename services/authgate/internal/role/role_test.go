package role_test

import (
	"testing"

	"github.com/YaganovValera/storefront-auth/services/authgate/internal/role"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    role.Role
		wantErr bool
	}{
		{"", role.User, false},
		{"admin", role.Admin, false},
		{" HR ", role.HR, false},
		{"Sale", role.Sale, false},
		{"viewer", "", true},
	}
	for _, c := range cases {
		got, err := role.Parse(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("Parse(%q) error = %v; wantErr=%v", c.in, err, c.wantErr)
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestParseList(t *testing.T) {
	got, err := role.ParseList([]string{"admin", "ADMIN", "hr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != role.Admin || got[1] != role.HR {
		t.Errorf("ParseList = %v", got)
	}
	if _, err := role.ParseList(nil); err == nil {
		t.Error("expected error for empty list")
	}
	if _, err := role.ParseList([]string{"root"}); err == nil {
		t.Error("expected error for unknown role")
	}
}
