package ordering

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	known := []string{"a", "b", "c"}
	cases := []struct {
		name  string
		items []Item
		want  error
	}{
		{"ok", []Item{{"a", 1}, {"b", 0}, {"c", 2}}, nil},
		{"partial", []Item{{"a", 1}, {"b", 0}}, ErrInvalidOrder},
		{"empty", nil, ErrInvalidOrder},
		{"unknown", []Item{{"z", 0}}, ErrUnknownItem},
		{"duplicate id", []Item{{"a", 0}, {"a", 1}}, ErrInvalidOrder},
		{"duplicate order", []Item{{"a", 0}, {"b", 0}}, ErrInvalidOrder},
		{"negative", []Item{{"a", -1}}, ErrInvalidOrder},
		{"missing id", []Item{{"", 0}}, ErrInvalidOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.items, known)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate()=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestMove(t *testing.T) {
	ids := []string{"a", "b", "c"}

	got, err := Move(ids, "b", Up, ListBase)
	if err != nil {
		t.Fatalf("Move up: %v", err)
	}
	want := []Item{{"b", 0}, {"a", 1}, {"c", 2}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Move up: got %v, want %v", got, want)
		}
	}
	if ids[0] != "a" {
		t.Fatalf("Move must not mutate its input: %v", ids)
	}

	got, err = Move(ids, "b", Down, StepBase)
	if err != nil {
		t.Fatalf("Move down: %v", err)
	}
	if got[0] != (Item{"a", 1}) || got[1] != (Item{"c", 2}) || got[2] != (Item{"b", 3}) {
		t.Fatalf("Move down from step base: %v", got)
	}

	if _, err := Move(ids, "a", Up, ListBase); !errors.Is(err, ErrAtEdge) {
		t.Fatalf("expected ErrAtEdge at top, got %v", err)
	}
	if _, err := Move(ids, "c", Down, ListBase); !errors.Is(err, ErrAtEdge) {
		t.Fatalf("expected ErrAtEdge at bottom, got %v", err)
	}
	if _, err := Move(ids, "x", Down, ListBase); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
}

func TestNext(t *testing.T) {
	if got := Next(nil); got != 0 {
		t.Fatalf("Next(empty)=%d", got)
	}
	if got := Next([]int{0, 4, 2}); got != 5 {
		t.Fatalf("Next=%d, want 5", got)
	}
	if got := NextFrom(nil, StepBase); got != 1 {
		t.Fatalf("NextFrom(empty, 1)=%d", got)
	}
	if got := NextFrom([]int{1, 2}, StepBase); got != 3 {
		t.Fatalf("NextFrom=%d, want 3", got)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection(" UP "); err != nil || d != Up {
		t.Fatalf("ParseDirection: %v %v", d, err)
	}
	if _, err := ParseDirection("left"); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
}
