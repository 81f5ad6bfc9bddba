package query

import (
	"sync"
	"testing"
)

type testHandle uint32

type closureKey struct {
	owner uint32
	expr  uint32
}

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner[closureKey, testHandle]("closure")
	keys := []closureKey{{1, 2}, {1, 3}, {2, 2}, {1, 2}}
	ids := make([]testHandle, len(keys))
	for i, k := range keys {
		ids[i] = in.Intern(k)
		if ids[i] == 0 {
			t.Fatalf("handle 0 must stay reserved")
		}
		if got := in.Lookup(ids[i]); got != k {
			t.Fatalf("lookup(intern(%v)) = %v", k, got)
		}
	}
	if ids[0] != ids[3] {
		t.Fatalf("equal composites must share a handle: %d vs %d", ids[0], ids[3])
	}
	if ids[0] == ids[1] || ids[0] == ids[2] || ids[1] == ids[2] {
		t.Fatalf("distinct composites must not share a handle: %v", ids)
	}
	if in.Len() != 3 {
		t.Fatalf("expected 3 handles, got %d", in.Len())
	}
}

func TestInternerLookupOfUnissuedHandlePanics(t *testing.T) {
	in := NewInterner[string, testHandle]("names")
	in.Intern("x")
	for _, id := range []testHandle{0, 2} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("lookup(%d) should panic", id)
				}
			}()
			in.Lookup(id)
		}()
	}
}

func TestInternerConcurrentIntern(t *testing.T) {
	in := NewInterner[int, testHandle]("ints")
	var wg sync.WaitGroup
	handles := make([][]testHandle, 4)
	for w := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range 100 {
				handles[w] = append(handles[w], in.Intern(v))
			}
		}()
	}
	wg.Wait()
	for w := 1; w < len(handles); w++ {
		for i := range handles[w] {
			if handles[w][i] != handles[0][i] {
				t.Fatalf("worker %d got handle %d for %d, worker 0 got %d", w, handles[w][i], i, handles[0][i])
			}
		}
	}
	if in.Len() != 100 {
		t.Fatalf("expected 100 handles, got %d", in.Len())
	}
}
