package postgres

import (
	"testing"

	"abiFrame/internal/model"
)

func TestChunkRows(t *testing.T) {
	rows := make([]*model.TableRow, 5)
	for i := range rows {
		rows[i] = &model.TableRow{Key: string(rune('a' + i))}
	}

	chunks := chunkRows(rows, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0].Key != "e" {
		t.Fatalf("unexpected last chunk: %+v", chunks[2])
	}

	if got := chunkRows(nil, 2); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(got))
	}
	if got := chunkRows(rows, 0); len(got) != 1 {
		t.Fatalf("expected default chunk size, got %d chunks", len(got))
	}
}
