package ringbuf

import "testing"

func TestPushEvictsOldest(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	got := r.Snapshot()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAtOrdering(t *testing.T) {
	r := New[string](2)
	r.Push("a")
	r.Push("b")
	r.Push("c")

	if r.At(0) != "b" {
		t.Errorf("At(0) = %q, want b", r.At(0))
	}
	if r.At(1) != "c" {
		t.Errorf("At(1) = %q, want c", r.At(1))
	}
}

func TestLast(t *testing.T) {
	r := New[int](4)
	if _, ok := r.Last(); ok {
		t.Error("Last on empty ring should report false")
	}
	r.Push(7)
	r.Push(8)
	v, ok := r.Last()
	if !ok || v != 8 {
		t.Errorf("Last = %d,%v, want 8,true", v, ok)
	}
}

func TestTail(t *testing.T) {
	r := New[int](5)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	got := r.Tail(3)
	want := []int{3, 4, 5}
	if len(got) != 3 {
		t.Fatalf("Tail(3) len = %d, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tail[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if got := r.Tail(10); len(got) != 5 {
		t.Errorf("Tail(10) len = %d, want 5", len(got))
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	snap := r.Snapshot()
	r.Push(2)
	r.Push(3)
	if snap[0] != 1 {
		t.Errorf("snapshot mutated after push: got %d, want 1", snap[0])
	}
}
