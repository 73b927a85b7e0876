package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sc1-labs/vaultops/types"
)

//go:embed schema.sql
var schemaSQL string

var _ Registry = (*SQLiteStore)(nil)

// SQLiteStore keeps the records of every network in a single SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	network string
	now     func() time.Time
}

// OpenSQLite creates or opens the database at path and scopes it to network.
func OpenSQLite(path, network string) (*SQLiteStore, error) {
	if network == "" {
		return nil, errors.New("network name is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, network: network, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Get reads the record stored under name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (types.DeploymentRecord, error) {
	var (
		address, predecessor, txHash string
		abiJSON                      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT address, abi, predecessor, tx_hash
		FROM deployments
		WHERE network = ? AND name = ?
	`, s.network, name).Scan(&address, &abiJSON, &predecessor, &txHash)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DeploymentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return types.DeploymentRecord{}, fmt.Errorf("get deployment %s: %w", name, err)
	}
	if !common.IsHexAddress(address) {
		return types.DeploymentRecord{}, fmt.Errorf("get deployment %s: invalid address %q", name, address)
	}

	record := types.DeploymentRecord{
		Name:        name,
		Address:     common.HexToAddress(address),
		Predecessor: predecessor,
	}
	if abiJSON.Valid && abiJSON.String != "" {
		record.ABI = []byte(abiJSON.String)
	}
	if txHash != "" {
		record.TransactionHash = common.HexToHash(txHash)
	}

	return record, nil
}

// Save upserts record.
func (s *SQLiteStore) Save(ctx context.Context, record types.DeploymentRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	var abiJSON sql.NullString
	if len(record.ABI) > 0 {
		abiJSON = sql.NullString{String: string(record.ABI), Valid: true}
	}
	var txHash string
	if record.TransactionHash != (common.Hash{}) {
		txHash = record.TransactionHash.Hex()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deployments (network, name, address, abi, predecessor, tx_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(network, name) DO UPDATE SET
			address = excluded.address,
			abi = excluded.abi,
			predecessor = excluded.predecessor,
			tx_hash = excluded.tx_hash,
			updated_at = excluded.updated_at
	`,
		s.network,
		record.Name,
		record.Address.Hex(),
		abiJSON,
		record.Predecessor,
		txHash,
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save deployment %s: %w", record.Name, err)
	}

	return nil
}

// Exists reports whether a record is stored under name.
func (s *SQLiteStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deployments WHERE network = ? AND name = ?`, s.network, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup deployment %s: %w", name, err)
	}

	return n > 0, nil
}
