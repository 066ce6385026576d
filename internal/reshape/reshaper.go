package reshape

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"abiFrame/internal/abisource"
	"abiFrame/internal/decode"
	"abiFrame/internal/model"
	"abiFrame/internal/parallel"
)

// ErrMissingColumns is returned when a required column is absent from every input row.
var ErrMissingColumns = errors.New("required columns missing")

type Config struct {
	// Workers bounds concurrent decodes. Zero uses GOMAXPROCS.
	Workers int
}

// Options are per-call settings.
type Options struct {
	// Alias renames input columns to canonical names before binding.
	Alias map[string]string
	// OnFailure receives every dropped row. Called from the calling goroutine.
	OnFailure func(model.DecodeError)
	// OnProgress is called once per decoded row, possibly concurrently.
	OnProgress func()
}

// Reshaper turns raw trace and log rows into one wide table keyed by row key.
type Reshaper struct {
	source  abisource.Source
	decoder *decode.Decoder
	workers int
	logger  *zap.Logger
}

func New(source abisource.Source, cfg Config, logger *zap.Logger) *Reshaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reshaper{
		source:  source,
		decoder: decode.NewDecoder(logger),
		workers: cfg.Workers,
		logger:  logger,
	}
}

// record is a bound input row of either kind.
type record struct {
	index   int
	rowKey  string
	meta    model.RowMeta
	address string
	abi     string

	event  bool
	input  string
	topics []string
	data   string

	iface *decode.Interface
}

type outcome struct {
	row decodedRow
	err error
}

// Traces reshapes call traces. Rows need block_number, tx_index, address and
// input; trace_address and abi are optional.
func (r *Reshaper) Traces(ctx context.Context, rows []model.Row, opts Options) (*model.Table, error) {
	return r.run(ctx, model.TracesTable, rows, opts, model.TraceRequiredColumns, func(index int, row model.Row) (*record, error) {
		rec, err := model.BindTrace(row)
		if err != nil {
			return nil, err
		}
		meta := model.RowMeta{BlockNumber: rec.BlockNumber, TxIndex: rec.TxIndex, TraceAddress: rec.TraceAddress}
		return &record{
			index:   index,
			rowKey:  TraceRowKey(rec.BlockNumber, rec.TxIndex, rec.TraceAddress),
			meta:    meta,
			address: rec.Address,
			abi:     rec.ABI,
			input:   rec.Input,
		}, nil
	})
}

// Logs reshapes event logs. Rows need block_number, tx_index, address, topics
// and data; abi is optional.
func (r *Reshaper) Logs(ctx context.Context, rows []model.Row, opts Options) (*model.Table, error) {
	return r.run(ctx, model.LogsTable, rows, opts, model.LogRequiredColumns, func(index int, row model.Row) (*record, error) {
		rec, err := model.BindLog(row)
		if err != nil {
			return nil, err
		}
		return &record{
			index:   index,
			rowKey:  LogRowKey(rec.BlockNumber, rec.TxIndex),
			meta:    model.RowMeta{BlockNumber: rec.BlockNumber, TxIndex: rec.TxIndex},
			address: rec.Address,
			abi:     rec.ABI,
			event:   true,
			topics:  rec.Topics,
			data:    rec.Data,
		}, nil
	})
}

func (r *Reshaper) run(
	ctx context.Context,
	kind model.TableKind,
	rows []model.Row,
	opts Options,
	required []string,
	bind func(int, model.Row) (*record, error),
) (*model.Table, error) {
	if len(rows) == 0 {
		return model.NewTable(kind), nil
	}

	renamed := make([]model.Row, len(rows))
	for i, row := range rows {
		renamed[i] = row.Rename(opts.Alias)
	}
	if missing := missingColumns(renamed, required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	report := func(e model.DecodeError) {
		if opts.OnFailure != nil {
			opts.OnFailure(e)
		}
	}

	records := make([]*record, 0, len(renamed))
	meta := make(map[string]model.RowMeta, len(renamed))
	for i, row := range renamed {
		rec, err := bind(i, row)
		if err != nil {
			r.logger.Debug("bind row failed", zap.Int("index", i), zap.Error(err))
			report(model.DecodeError{Index: i, Stage: model.StageBind, Error: err.Error()})
			continue
		}
		records = append(records, rec)
		meta[rec.rowKey] = rec.meta
	}

	resolved, err := r.resolveAll(ctx, records, report)
	if err != nil {
		return nil, err
	}

	outcomes, err := parallel.MapRows(ctx, resolved, r.workers, func(_ context.Context, _ int, rec *record) (outcome, error) {
		out := r.decodeRecord(rec)
		if opts.OnProgress != nil {
			opts.OnProgress()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	decoded := make([]decodedRow, 0, len(outcomes))
	for i, out := range outcomes {
		if out.err != nil {
			rec := resolved[i]
			report(failure(rec, model.StageDecode, out.err))
			continue
		}
		decoded = append(decoded, out.row)
	}

	merged := foldGroups(buildGroups(decoded))
	table, orphans := attachMeta(kind, merged, meta)
	if len(orphans) > 0 {
		r.logger.Warn("dropped rows without source record", zap.Strings("row_keys", orphans))
	}

	r.logger.Info("reshape complete",
		zap.String("kind", string(kind)),
		zap.Int("total", len(rows)),
		zap.Int("decoded", len(decoded)),
		zap.Int("failed", len(rows)-len(decoded)),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Columns())),
	)
	return table, nil
}

// resolveAll assigns an interface to every record in a sequential pass so
// the parallel decode only reads. Records without an interface are reported
// and dropped.
func (r *Reshaper) resolveAll(ctx context.Context, records []*record, report func(model.DecodeError)) ([]*record, error) {
	res := newResolver(r.source, r.logger)
	resolved := make([]*record, 0, len(records))
	for _, rec := range records {
		iface, err := res.resolve(ctx, rec.address, rec.abi)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &parallel.ScheduleError{Index: rec.index, Err: ctxErr}
			}
			report(failure(rec, model.StageResolve, err))
			continue
		}
		rec.iface = iface
		resolved = append(resolved, rec)
	}
	return resolved, nil
}

func (r *Reshaper) decodeRecord(rec *record) outcome {
	var (
		decoded decode.Decoded
		err     error
	)
	if rec.event {
		decoded, err = r.decoder.Event(rec.iface, rec.topics, rec.data)
	} else {
		decoded, err = r.decoder.Call(rec.iface, rec.input)
	}
	if err != nil {
		r.logger.Debug("decode failed",
			zap.String("address", rec.address),
			zap.String("row_key", rec.rowKey),
			zap.Error(err),
		)
		return outcome{err: err}
	}
	return outcome{row: decodedRow{
		rowKey:  rec.rowKey,
		address: rec.address,
		member:  decoded.MemberName,
		fields:  decoded.Fields,
	}}
}

func failure(rec *record, stage string, err error) model.DecodeError {
	return model.DecodeError{
		Index:       rec.index,
		RowKey:      rec.rowKey,
		BlockNumber: rec.meta.BlockNumber,
		TxIndex:     rec.meta.TxIndex,
		Address:     rec.address,
		Stage:       stage,
		Error:       err.Error(),
	}
}

func missingColumns(rows []model.Row, required []string) []string {
	var missing []string
	for _, col := range required {
		found := false
		for _, row := range rows {
			if _, ok := row[col]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return missing
}
