package cardvault

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DecodeTransaction decodes a single JSON object into the transaction type named by its "command".
func DecodeTransaction(data []byte) (Transaction, error) {
	var identifier struct {
		Command CommandType `json:"command"`
	}
	if err := json.Unmarshal(data, &identifier); err != nil {
		return nil, fmt.Errorf("could not identify command: %w", err)
	}
	var (
		tx  Transaction
		err error
	)
	switch identifier.Command {
	case CmdDeclare:
		var v Declare
		err = json.Unmarshal(data, &v)
		tx = v
	case CmdAcquire:
		var v Acquire
		err = json.Unmarshal(data, &v)
		tx = v
	case CmdDispose:
		var v Dispose
		err = json.Unmarshal(data, &v)
		tx = v
	case CmdUpdatePrice:
		var v UpdatePrice
		err = json.Unmarshal(data, &v)
		tx = v
	case CmdList:
		var v List
		err = json.Unmarshal(data, &v)
		tx = v
	case CmdDelist:
		var v Delist
		err = json.Unmarshal(data, &v)
		tx = v
	case "":
		return nil, fmt.Errorf("missing command")
	default:
		return nil, fmt.Errorf("unknown command %q", identifier.Command)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", identifier.Command, err)
	}
	return tx, nil
}

// DecodeLedger reads a JSONL stream, one transaction per line, and returns a sorted ledger.
// The ledger has no name, see [FindLedger].
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger("")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue // Skip empty lines
		}
		tx, err := DecodeTransaction(b)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ledger.Append(tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger: %w", err)
	}
	return ledger, nil
}

// EncodeTransaction returns the canonical single line encoding of tx, without the trailing newline.
func EncodeTransaction(tx Transaction) ([]byte, error) {
	b, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s transaction: %w", tx.What(), err)
	}
	return b, nil
}

// EncodeLedger writes all transactions in chronological order, one JSON object per line.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	for _, tx := range ledger.Transactions() {
		b, err := EncodeTransaction(tx)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("could not write transaction: %w", err)
		}
	}
	return nil
}
