package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// InsertTransactionOutputsLookup stores resolved outputs so later lookups skip the node.
func (r *Repository) InsertTransactionOutputsLookup(ctx context.Context, outputs []model.OutputLookup) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("insert_transaction_outputs_lookup", firstNetwork(outputs), err, start)
	}()

	if len(outputs) == 0 {
		return nil
	}

	const query = `INSERT INTO utxo_transaction_outputs_lookup (
	coin,
	network,
	txid,
	output_index,
	value,
	addresses
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		err = fmt.Errorf("prepare transaction outputs batch: %w", err)
		return err
	}

	for _, output := range outputs {
		if err = batch.Append(
			r.coin,
			string(output.Network),
			output.TxID,
			output.Index,
			output.Value,
			output.Addresses,
		); err != nil {
			err = fmt.Errorf("append transaction output: %w", err)
			return err
		}
	}

	if err = batch.Send(); err != nil {
		err = fmt.Errorf("insert transaction outputs: %w", err)
		return err
	}
	return nil
}

func firstNetwork(outputs []model.OutputLookup) model.Network {
	if len(outputs) == 0 {
		return ""
	}
	return outputs[0].Network
}
