package schedule

import (
	"strings"
	"sync/atomic"
	"testing"
)

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	p := NewPool(WithWorkers(4), WithQueueSize(8))
	defer p.Close()

	for _, n := range []int{0, 1, 7, 100, 1000} {
		hits := make([]int32, n)
		p.ParallelFor(n, func(i int) {
			atomic.AddInt32(&hits[i], 1)
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}

func TestParallelForRepanicsOnCaller(t *testing.T) {
	p := NewPool(WithWorkers(2))
	defer p.Close()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if !strings.Contains(r.(string), "index 3") {
			t.Errorf("unexpected panic value %v", r)
		}
	}()
	p.ParallelFor(10, func(i int) {
		if i == 3 {
			panic("index 3")
		}
	})
}

func TestSerialPoolOrder(t *testing.T) {
	var got []int
	Serial{}.ParallelFor(4, func(i int) { got = append(got, i) })
	for i, v := range got {
		if v != i {
			t.Fatalf("Serial order %v", got)
		}
	}
}
