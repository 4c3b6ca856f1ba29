package date

import "testing"

func TestAppend(t *testing.T) {
	h := new(History[string])
	d1, v1 := MustParse("2025-07-01"), "25 Jul 1"
	d2, v2 := MustParse("2024-07-01"), "24 Jul 1"

	// Values are appended in reverse order: the history must stay sorted.
	if h.Len() != 0 {
		t.Errorf("History.Len() = %v want 0", h.Len())
	}
	h.Append(d1, v1)
	h.Append(d2, v2)
	if h.Len() != 2 {
		t.Fatalf("History.Len() = %v want 2", h.Len())
	}
	if h.days[0] != d2 || h.days[1] != d1 {
		t.Errorf("history days = %v want [%v %v]", h.days, d2, d1)
	}
	if h.values[0] != v2 || h.values[1] != v1 {
		t.Errorf("history values = %v want [%v %v]", h.values, v2, v1)
	}

	// same day overwrites
	h.Append(d1, "updated")
	if got, _ := h.Get(d1); got != "updated" || h.Len() != 2 {
		t.Errorf("Append(d1) overwrite = %q (len %d)", got, h.Len())
	}
}

func TestValueAsOf(t *testing.T) {
	var h History[int]
	h.Append(MustParse("2025-01-10"), 10)
	h.Append(MustParse("2025-01-20"), 20)

	tests := []struct {
		on     string
		want   int
		wantOK bool
	}{
		{"2025-01-09", 0, false},
		{"2025-01-10", 10, true},
		{"2025-01-15", 10, true},
		{"2025-01-20", 20, true},
		{"2025-02-01", 20, true},
	}
	for _, tt := range tests {
		got, ok := h.ValueAsOf(MustParse(tt.on))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ValueAsOf(%s) = %v, %v want %v, %v", tt.on, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBetween(t *testing.T) {
	var h History[int]
	for i := 1; i <= 10; i++ {
		h.Append(MustParse("2025-01-01").Add(i), i)
	}
	sub := h.Between(Range{From: MustParse("2025-01-03"), To: MustParse("2025-01-05")})
	if sub.Len() != 3 {
		t.Fatalf("Between().Len() = %d want 3", sub.Len())
	}
	first, v := sub.First()
	if first != MustParse("2025-01-03") || v != 2 {
		t.Errorf("Between().First() = %v, %v", first, v)
	}
	last, v := sub.Latest()
	if last != MustParse("2025-01-05") || v != 4 {
		t.Errorf("Between().Latest() = %v, %v", last, v)
	}
}
