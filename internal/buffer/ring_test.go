package buffer

import (
	"sync"
	"testing"
)

func TestNewRing(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"positive", 4, false},
		{"one", 1, false},
		{"zero", 0, true},
		{"negative", -3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRing[int](tt.capacity)
			if tt.wantErr {
				if err != ErrInvalidCapacity {
					t.Errorf("NewRing(%d) error = %v, want ErrInvalidCapacity", tt.capacity, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRing(%d) error = %v", tt.capacity, err)
			}
			if r.Cap() != tt.capacity {
				t.Errorf("Cap() = %d, want %d", r.Cap(), tt.capacity)
			}
		})
	}
}

func TestRing_RetainsMostRecent(t *testing.T) {
	const capacity = 5

	for extra := 0; extra <= 12; extra++ {
		r := MustRing[int](capacity)
		total := capacity + extra
		evictions := 0
		for i := 0; i < total; i++ {
			if r.Add(i) {
				evictions++
			}
		}

		if evictions != extra {
			t.Errorf("after %d writes: %d evictions, want %d", total, evictions, extra)
		}
		got := r.Snapshot()
		if len(got) != capacity {
			t.Fatalf("after %d writes: Snapshot() len = %d, want %d", total, len(got), capacity)
		}
		for i, v := range got {
			if want := extra + i; v != want {
				t.Errorf("after %d writes: Snapshot()[%d] = %d, want %d", total, i, v, want)
			}
		}
	}
}

func TestRing_PartiallyFilled(t *testing.T) {
	r := MustRing[string](3)
	if _, ok := r.Last(); ok {
		t.Error("Last() on empty ring should report false")
	}
	if len(r.Snapshot()) != 0 {
		t.Error("Snapshot() of empty ring should be empty")
	}

	r.Add("a")
	r.Add("b")
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if last, _ := r.Last(); last != "b" {
		t.Errorf("Last() = %q, want b", last)
	}

	snap := r.Snapshot()
	snap[0] = "mutated"
	if r.Snapshot()[0] != "a" {
		t.Error("Snapshot() must return a copy")
	}
}

func TestRing_Clear(t *testing.T) {
	r := MustRing[int](2)
	r.Add(1)
	r.Add(2)
	r.Add(3)
	r.Clear()

	if r.Len() != 0 || r.Writes() != 0 {
		t.Errorf("after Clear(): Len() = %d, Writes() = %d", r.Len(), r.Writes())
	}
	r.Add(4)
	if got := r.Snapshot(); len(got) != 1 || got[0] != 4 {
		t.Errorf("Snapshot() after Clear and Add = %v", got)
	}
}

func TestRing_ConcurrentAdd(t *testing.T) {
	r := MustRing[int](64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				r.Add(j)
				if j%50 == 0 {
					_ = r.Snapshot()
				}
			}
		}()
	}
	wg.Wait()

	if r.Writes() != 8*500 {
		t.Errorf("Writes() = %d, want %d", r.Writes(), 8*500)
	}
	if r.Len() != 64 {
		t.Errorf("Len() = %d, want 64", r.Len())
	}
}
