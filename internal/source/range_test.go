package source

import (
	"context"
	"reflect"
	"testing"
)

func TestBlockRangeSplit(t *testing.T) {
	got, err := BlockRange{From: 100, To: 104}.Split(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 104},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("batches mismatch: %+v != %+v", got, want)
	}
}

func TestBlockRangeSplitSingleBlock(t *testing.T) {
	got, err := BlockRange{From: 5, To: 5}.Split(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []BlockRange{{From: 5, To: 5}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("batches mismatch: %+v != %+v", got, want)
	}
	if n := got[0].Len(); n != 1 {
		t.Fatalf("expected length 1, got %d", n)
	}
}

func TestBlockRangeSplitInvalid(t *testing.T) {
	if _, err := (BlockRange{From: 10, To: 9}).Split(1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := (BlockRange{From: 1, To: 10}).Split(0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestResolveRangeUsesHead(t *testing.T) {
	got, err := resolveRange(context.Background(), &fakeNode{latest: 42}, 7, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (BlockRange{From: 7, To: 42}) {
		t.Fatalf("unexpected range: %+v", got)
	}
}
