// Package ledgerdb maintains a relational index of closed ledgers and their
// transactions, so they can be looked up by sequence, hash or transaction
// ID without touching the node store.
package ledgerdb

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/arcledger/arcd/internal/core/ledger"
	"github.com/arcledger/arcd/internal/core/tx"
)

// ErrNotFound is returned when no row matches the query.
var ErrNotFound = errors.New("ledgerdb: not found")

const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
	seq               INTEGER PRIMARY KEY,
	hash              TEXT NOT NULL UNIQUE,
	parent_hash       TEXT NOT NULL,
	close_time        INTEGER NOT NULL,
	parent_close_time INTEGER NOT NULL,
	resolution        INTEGER NOT NULL,
	close_flags       INTEGER NOT NULL,
	total_drops       INTEGER NOT NULL,
	state_root        TEXT NOT NULL,
	tx_root           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	txid       TEXT PRIMARY KEY,
	ledger_seq INTEGER NOT NULL,
	tx_index   INTEGER NOT NULL,
	result     TEXT NOT NULL,
	FOREIGN KEY (ledger_seq) REFERENCES ledgers (seq)
);
CREATE INDEX IF NOT EXISTS tx_by_ledger ON transactions (ledger_seq);
`

// DB is the ledger index.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the index at path. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledgerdb: schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the index.
func (d *DB) Close() error {
	return d.db.Close()
}

// LedgerRow is one indexed ledger header.
type LedgerRow struct {
	Sequence            uint32
	Hash                [32]byte
	ParentHash          [32]byte
	CloseTime           uint32
	ParentCloseTime     uint32
	CloseTimeResolution uint8
	CloseFlags          uint8
	TotalDrops          uint64
	StateRoot           [32]byte
	TxRoot              [32]byte
}

// Info converts the row back into the ledger header it was saved from.
func (r *LedgerRow) Info() ledger.Info {
	return ledger.Info{
		Sequence:            r.Sequence,
		TotalDrops:          r.TotalDrops,
		ParentHash:          r.ParentHash,
		TxHash:              r.TxRoot,
		AccountHash:         r.StateRoot,
		ParentCloseTime:     r.ParentCloseTime,
		CloseTime:           r.CloseTime,
		CloseTimeResolution: r.CloseTimeResolution,
		CloseFlags:          r.CloseFlags,
		Hash:                r.Hash,
	}
}

// TxRow is one indexed transaction.
type TxRow struct {
	ID        [32]byte
	LedgerSeq uint32
	Index     uint32
	Result    tx.Result
}

// SaveLedger indexes a closed ledger header.
func (d *DB) SaveLedger(info ledger.Info) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO ledgers
		 (seq, hash, parent_hash, close_time, parent_close_time, resolution,
		  close_flags, total_drops, state_root, tx_root)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.Sequence,
		hex.EncodeToString(info.Hash[:]),
		hex.EncodeToString(info.ParentHash[:]),
		info.CloseTime,
		info.ParentCloseTime,
		info.CloseTimeResolution,
		info.CloseFlags,
		info.TotalDrops,
		hex.EncodeToString(info.AccountHash[:]),
		hex.EncodeToString(info.TxHash[:]),
	)
	if err != nil {
		return fmt.Errorf("ledgerdb: save ledger %d: %w", info.Sequence, err)
	}
	return nil
}

// SaveTransaction indexes one applied transaction.
func (d *DB) SaveTransaction(txID [32]byte, ledgerSeq, index uint32, result tx.Result) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO transactions (txid, ledger_seq, tx_index, result)
		 VALUES (?, ?, ?, ?)`,
		hex.EncodeToString(txID[:]), ledgerSeq, index, result.String(),
	)
	if err != nil {
		return fmt.Errorf("ledgerdb: save transaction: %w", err)
	}
	return nil
}

const ledgerColumns = `seq, hash, parent_hash, close_time, parent_close_time,
	resolution, close_flags, total_drops, state_root, tx_root`

// LedgerBySeq fetches a ledger header by sequence.
func (d *DB) LedgerBySeq(seq uint32) (*LedgerRow, error) {
	row := d.db.QueryRow(
		`SELECT `+ledgerColumns+` FROM ledgers WHERE seq = ?`, seq)
	return scanLedger(row)
}

// LedgerByHash fetches a ledger header by hash.
func (d *DB) LedgerByHash(hash [32]byte) (*LedgerRow, error) {
	row := d.db.QueryRow(
		`SELECT `+ledgerColumns+` FROM ledgers WHERE hash = ?`,
		hex.EncodeToString(hash[:]))
	return scanLedger(row)
}

// StateRootByHash returns the state root of the ledger with the given hash.
// Satisfies the ancestor resolver's header source.
func (d *DB) StateRootByHash(hash [32]byte) ([32]byte, error) {
	row, err := d.LedgerByHash(hash)
	if err != nil {
		return [32]byte{}, err
	}
	return row.StateRoot, nil
}

// MaxSequence returns the highest indexed ledger sequence, or 0 when empty.
func (d *DB) MaxSequence() (uint32, error) {
	var seq sql.NullInt64
	if err := d.db.QueryRow(`SELECT MAX(seq) FROM ledgers`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("ledgerdb: max sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint32(seq.Int64), nil
}

// TxByID fetches a transaction record by ID.
func (d *DB) TxByID(txID [32]byte) (*TxRow, error) {
	var (
		r      TxRow
		idHex  string
		result string
	)
	err := d.db.QueryRow(
		`SELECT txid, ledger_seq, tx_index, result FROM transactions WHERE txid = ?`,
		hex.EncodeToString(txID[:])).Scan(&idHex, &r.LedgerSeq, &r.Index, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: tx by id: %w", err)
	}
	if err := decodeHash(idHex, &r.ID); err != nil {
		return nil, err
	}
	r.Result = resultFromString(result)
	return &r, nil
}

// TxsByLedger fetches every transaction applied in one ledger, in
// application order.
func (d *DB) TxsByLedger(seq uint32) ([]*TxRow, error) {
	rows, err := d.db.Query(
		`SELECT txid, ledger_seq, tx_index, result FROM transactions
		 WHERE ledger_seq = ? ORDER BY tx_index`, seq)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: txs by ledger: %w", err)
	}
	defer rows.Close()

	var out []*TxRow
	for rows.Next() {
		var (
			r      TxRow
			idHex  string
			result string
		)
		if err := rows.Scan(&idHex, &r.LedgerSeq, &r.Index, &result); err != nil {
			return nil, fmt.Errorf("ledgerdb: scan: %w", err)
		}
		if err := decodeHash(idHex, &r.ID); err != nil {
			return nil, err
		}
		r.Result = resultFromString(result)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func scanLedger(row *sql.Row) (*LedgerRow, error) {
	var (
		r                               LedgerRow
		hash, parent, stateRoot, txRoot string
	)
	err := row.Scan(&r.Sequence, &hash, &parent, &r.CloseTime, &r.ParentCloseTime,
		&r.CloseTimeResolution, &r.CloseFlags, &r.TotalDrops, &stateRoot, &txRoot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: scan ledger: %w", err)
	}
	for _, pair := range []struct {
		src string
		dst *[32]byte
	}{{hash, &r.Hash}, {parent, &r.ParentHash}, {stateRoot, &r.StateRoot}, {txRoot, &r.TxRoot}} {
		if err := decodeHash(pair.src, pair.dst); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func decodeHash(s string, dst *[32]byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("ledgerdb: bad hash %q", s)
	}
	copy(dst[:], raw)
	return nil
}

// resultFromString maps a stored result name back to its code. Unknown
// names come back as temMALFORMED rather than silently succeeding.
func resultFromString(s string) tx.Result {
	for _, r := range []tx.Result{
		tx.TesSUCCESS,
		tx.TecCLAIM, tx.TecUNFUNDED_OFFER, tx.TecUNFUNDED_PAYMENT,
		tx.TecINSUF_RESERVE_OFFER, tx.TecNO_DST, tx.TecNO_DST_INSUF_XRP,
		tx.TecPATH_DRY, tx.TecNO_ISSUER, tx.TecNO_LINE, tx.TecFROZEN,
		tx.TefFAILURE, tx.TefALREADY, tx.TefBAD_AUTH, tx.TefPAST_SEQ,
		tx.TemMALFORMED, tx.TemBAD_AMOUNT, tx.TemBAD_FEE, tx.TemBAD_LIMIT,
		tx.TemBAD_OFFER, tx.TemBAD_SIGNATURE, tx.TemDST_IS_SRC,
		tx.TemDST_NEEDED, tx.TemINVALID, tx.TemINVALID_FLAG, tx.TemREDUNDANT,
		tx.TerRETRY, tx.TerINSUF_FEE_B, tx.TerNO_ACCOUNT, tx.TerPRE_SEQ,
	} {
		if r.String() == s {
			return r
		}
	}
	return tx.TemMALFORMED
}
