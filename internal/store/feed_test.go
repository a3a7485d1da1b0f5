package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dexEvent(i int) *DexScanEvent {
	return &DexScanEvent{
		Header:  Header{Timestamp: time.Unix(int64(i), 0)},
		Dex:     fmt.Sprintf("dex-%d", i),
		Status:  DexScanning,
		Message: "scan",
	}
}

func TestFeed_NewestFirst(t *testing.T) {
	f := NewFeed[int](3)
	assert.Empty(t, f.Snapshot())

	f.Push(1)
	f.Push(2)
	assert.Equal(t, []int{2, 1}, f.Snapshot())

	f.Push(3)
	f.Push(4)
	f.Push(5)
	assert.Equal(t, []int{5, 4, 3}, f.Snapshot())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 3, f.Cap())
}

func TestFeed_CapacityInvariant(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 100} {
		f := NewFeed[int](capacity)
		for i := 0; i < 3*capacity+1; i++ {
			f.Push(i)
			if f.Len() > capacity {
				t.Fatalf("capacity %d: len %d after %d pushes", capacity, f.Len(), i+1)
			}
			snap := f.Snapshot()
			if snap[0] != i {
				t.Fatalf("capacity %d: newest = %d, want %d", capacity, snap[0], i)
			}
		}
	}
}

func TestFeed_SnapshotIsCopy(t *testing.T) {
	f := NewFeed[int](2)
	f.Push(1)
	snap := f.Snapshot()
	snap[0] = 99
	assert.Equal(t, []int{1}, f.Snapshot())
}

func TestNewFeed_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultFeedCapacity, NewFeed[int](0).Cap())
	assert.Equal(t, DefaultFeedCapacity, NewFeed[int](-5).Cap())
	assert.Equal(t, DefaultFeedCapacity, NewFeedStore(0).Capacity())
}

func TestFeedStore_PushAndSnapshot(t *testing.T) {
	s := NewFeedStore(100)
	for i := 0; i < 150; i++ {
		s.Push(FeedDex, dexEvent(i))
	}

	snap := s.Snapshot(FeedDex)
	require.Len(t, snap, 100)
	assert.Equal(t, "dex-149", snap[0].(*DexScanEvent).Dex)
	assert.Equal(t, "dex-50", snap[99].(*DexScanEvent).Dex)
	assert.Equal(t, 0, s.Len(FeedLiquidation))
	assert.Empty(t, s.Snapshot(FeedLiquidation))
}

func TestFeedStore_UnknownFeedCreatedOnPush(t *testing.T) {
	s := NewFeedStore(2)
	assert.Empty(t, s.Snapshot("opportunities"))

	s.Push("opportunities", dexEvent(1))
	s.Push("opportunities", dexEvent(2))
	s.Push("opportunities", dexEvent(3))
	assert.Equal(t, 2, s.Len("opportunities"))
}

func TestFeedStore_ConcurrentReaders(t *testing.T) {
	s := NewFeedStore(10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Push(FeedDex, dexEvent(i))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if n := len(s.Snapshot(FeedDex)); n > 10 {
					t.Errorf("snapshot len %d exceeds capacity", n)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestParameterState(t *testing.T) {
	p := NewParameterState()
	_, ok := p.Get("risk_level")
	assert.False(t, ok)

	p.Set(ParameterValue{Name: "risk_level", Raw: "7", Number: decimal.NewFromInt(7), Numeric: true})
	p.Set(ParameterValue{Name: "mode", Raw: "aggressive"})

	v, ok := p.Get("risk_level")
	require.True(t, ok)
	f, numeric := v.Float()
	assert.True(t, numeric)
	assert.Equal(t, 7.0, f)

	mode, _ := p.Get("mode")
	_, numeric = mode.Float()
	assert.False(t, numeric)
	assert.Len(t, p.Snapshot(), 2)
}

func TestBotStatusMap_ReplacesEntry(t *testing.T) {
	b := NewBotStatusMap()
	msg := "rpc down"
	b.Replace("arb", BotStatus{Status: "Error", Message: &msg})
	b.Replace("arb", BotStatus{Status: "Idle"})

	got, ok := b.Get("arb")
	require.True(t, ok)
	assert.Equal(t, "Idle", got.Status)
	assert.Nil(t, got.Message, "message must not be merged from the prior entry")
}
