package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/infinitynode-indexer/internal/infinitynode/model"
)

// TransactionOutputsLookupByTxIDs returns the indexed outputs of multiple transactions, keyed by txid.
func (r *Repository) TransactionOutputsLookupByTxIDs(ctx context.Context, network model.Network, txids []string) (result map[string][]model.OutputLookup, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("transaction_outputs_lookup_by_txids", network, err, start)
	}()

	result = make(map[string][]model.OutputLookup, len(txids))
	if len(txids) == 0 {
		return result, nil
	}

	const query = `
SELECT
	txid,
	output_index,
	anyLast(value) AS value,
	anyLast(addresses) AS addresses
FROM utxo_transaction_outputs_lookup
WHERE coin = ? AND network = ? AND txid IN ?
GROUP BY
	txid,
	output_index
ORDER BY output_index ASC
SETTINGS max_threads = 1`

	rows, err := r.conn.Query(ctx, query, r.coin, string(network), txids)
	if err != nil {
		err = fmt.Errorf("query transaction outputs by txids: %w", err)
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var output model.OutputLookup
		if err = rows.Scan(
			&output.TxID,
			&output.Index,
			&output.Value,
			&output.Addresses,
		); err != nil {
			err = fmt.Errorf("scan transaction output: %w", err)
			return nil, err
		}
		output.Network = network
		result[output.TxID] = append(result[output.TxID], output)
	}

	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterate transaction outputs: %w", err)
		return nil, err
	}

	return result, nil
}
