package aop_test

import (
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/aop"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"AOP:37", "AOP:37", true},
		{"aop:37", "AOP:37", true},
		{"AOP 37", "AOP:37", true},
		{"37", "AOP:37", true},
		{" 37 ", "AOP:37", true},
		{"https://identifiers.org/aop/37", "AOP:37", true},
		{"https://aopwiki.org/aops/37", "AOP:37", true},
		{"https://aopwiki.org/aops/37/", "AOP:37", true},
		{"AOP:0", "", false},
		{"-3", "", false},
		{"banana", "", false},
		{"", "", false},
		{"https://aopwiki.org/aops/", "", false},
	}
	for _, tc := range cases {
		got, ok := aop.Normalize(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Normalize(%q) = %q %v, want %q %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeAllDedupesPreservingOrder(t *testing.T) {
	got := aop.NormalizeAll([]string{
		"AOP:2", "junk", "https://identifiers.org/aop/1", "2", "AOP:1",
	})
	want := []string{"AOP:2", "AOP:1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
