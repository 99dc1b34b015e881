package desk

import "testing"

func TestMerge(t *testing.T) {
	if got := Merge(nil); got != "" {
		t.Fatalf("Merge(nil) = %q, want empty", got)
	}
	if got := Merge([]string{"HR: a"}); got != "HR: a" {
		t.Fatalf("single fragment = %q", got)
	}
	got := Merge([]string{"IT: fixed", "Finance: approved"})
	want := "IT: fixed\n\nFinance: approved"
	if got != want {
		t.Fatalf("Merge = %q, want %q", got, want)
	}
}

func TestMergeIsAssociative(t *testing.T) {
	a, b, c := "HR: one", "IT: two", "Finance: three"
	left := Merge([]string{Merge([]string{a, b}), c})
	right := Merge([]string{a, Merge([]string{b, c})})
	full := Merge([]string{a, b, c})
	if left != full || right != full {
		t.Fatalf("grouping changed the result: %q vs %q vs %q", left, right, full)
	}
}
