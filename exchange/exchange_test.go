package exchange

import (
	"sync"
	"testing"
)

func TestInProcessRoundTrip(t *testing.T) {
	const numRanks = 3
	ip := NewInProcess(numRanks)

	sends := [][]int{
		{1, 2}, // rank 0 sends to 1 and 2
		{0},    // rank 1 sends to 0
		{},     // rank 2 sends to nobody
	}
	payloads := [][][]byte{
		{[]byte("to-1"), []byte("to-2")},
		{[]byte("to-0")},
		{},
	}

	results := make([][]byte, numRanks)
	froms := make([][]int, numRanks)
	var wg sync.WaitGroup
	for r := 0; r < numRanks; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, p, err := ip.Rank(r).Exchange(sends[r], payloads[r])
			if err != nil {
				t.Errorf("rank %d: Exchange: %v", r, err)
				return
			}
			froms[r] = f
			if len(p) > 0 {
				results[r] = p[0]
			}
		}()
	}
	wg.Wait()

	if len(froms[0]) != 1 || froms[0][0] != 1 || string(results[0]) != "to-0" {
		t.Fatalf("rank 0 received from=%v payload=%q, want from=[1] payload=to-0", froms[0], results[0])
	}
	if len(froms[1]) != 1 || froms[1][0] != 0 || string(results[1]) != "to-1" {
		t.Fatalf("rank 1 received from=%v payload=%q, want from=[0] payload=to-1", froms[1], results[1])
	}
	if len(froms[2]) != 1 || froms[2][0] != 0 || string(results[2]) != "to-2" {
		t.Fatalf("rank 2 received from=%v payload=%q, want from=[0] payload=to-2", froms[2], results[2])
	}
}

func TestInProcessSingleRankRoundTripsTrivially(t *testing.T) {
	ip := NewInProcess(1)
	froms, payloads, err := ip.Rank(0).Exchange(nil, nil)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if len(froms) != 0 || len(payloads) != 0 {
		t.Fatalf("froms=%v payloads=%v, want empty", froms, payloads)
	}
}
