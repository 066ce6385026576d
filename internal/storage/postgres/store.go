package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"abiFrame/internal/model"
)

const DefaultBatchSize = 1000

const schemaSQL = `
CREATE TABLE IF NOT EXISTS decoded_rows (
	kind          TEXT        NOT NULL,
	row_key       TEXT        NOT NULL,
	block_number  BIGINT      NOT NULL,
	tx_index      BIGINT      NOT NULL,
	trace_address TEXT        NOT NULL DEFAULT '',
	fields        JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, row_key)
);
CREATE INDEX IF NOT EXISTS decoded_rows_block_idx ON decoded_rows (kind, block_number, tx_index);
`

const upsertRowSQL = `
	INSERT INTO decoded_rows (
		kind, row_key, block_number, tx_index, trace_address, fields, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6::jsonb, now(), now())
	ON CONFLICT (kind, row_key)
	DO UPDATE SET
		block_number = EXCLUDED.block_number,
		tx_index = EXCLUDED.tx_index,
		trace_address = EXCLUDED.trace_address,
		fields = decoded_rows.fields || EXCLUDED.fields,
		updated_at = now()
`

// Store provides Postgres persistence for reshaped tables.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
}

func NewStore(ctx context.Context, dsn string, batchSize int) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, batchSize: batchSize}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the decoded_rows table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertTable writes every row of table. Existing rows keep cells the new
// row does not set.
func (s *Store) UpsertTable(ctx context.Context, table *model.Table) error {
	rows := table.Rows()
	for _, chunk := range chunkRows(rows, s.batchSize) {
		if err := s.upsertChunk(ctx, table.Kind, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertChunk(ctx context.Context, kind model.TableKind, rows []*model.TableRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		fields, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields %s: %w", row.Key, err)
		}
		batch.Queue(upsertRowSQL,
			string(kind),
			row.Key,
			int64(row.Meta.BlockNumber),
			int64(row.Meta.TxIndex),
			row.Meta.TraceAddress,
			string(fields),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, row := range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert row %s: %w", row.Key, err)
		}
	}
	return nil
}

func chunkRows(rows []*model.TableRow, size int) [][]*model.TableRow {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]*model.TableRow
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
