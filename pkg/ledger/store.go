// Package ledger is the solver's durable mirror of on-chain intent state.
// It is eventually consistent with the chain and adds the bookkeeping the
// chain does not track: retry schedules, resume markers and quote state.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/openramp-hq/openramp-solver/pkg/models"
	"github.com/openramp-hq/openramp-solver/pkg/retrypolicy"
)

// ErrNotFound is returned when an intent or quote does not exist locally.
var ErrNotFound = errors.New("not found in ledger")

// Store is the SQLite-backed local ledger. All writes are serialized by the
// store mutex so concurrent pipelines cannot produce lost updates to
// retry_count or provider_transfer_id.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Commit carries the on-chain commit data recorded when this solver's quote
// is selected.
type Commit struct {
	Solver        common.Address
	Route         models.Route
	FiatAmount    int64 // cents
	ReceivingInfo string
	RecipientName string
	CommittedAt   time.Time
}

// FailureDecision reports what RecordFailure did with a failure.
type FailureDecision struct {
	Permanent  bool
	RetryAt    time.Time
	RetryCount int
}

// NewStore opens (creating if needed) the ledger database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS intents (
			id TEXT PRIMARY KEY,
			depositor TEXT NOT NULL,
			usdc_amount TEXT NOT NULL,
			currency INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			committed_at DATETIME,
			selected_solver TEXT NOT NULL DEFAULT '',
			selected_route INTEGER NOT NULL DEFAULT 0,
			selected_fiat_amount INTEGER NOT NULL DEFAULT 0,
			receiving_info TEXT NOT NULL DEFAULT '',
			recipient_name TEXT NOT NULL DEFAULT '',
			quotes_submitted INTEGER NOT NULL DEFAULT 0,
			fulfillment_tx_ref TEXT NOT NULL DEFAULT '',
			provider_transfer_id TEXT NOT NULL DEFAULT '',
			last_error TEXT NOT NULL DEFAULT '',
			retry_count INTEGER NOT NULL DEFAULT 0,
			next_retry_at DATETIME,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS quotes (
			intent_id TEXT NOT NULL,
			route INTEGER NOT NULL,
			fiat_amount INTEGER NOT NULL,
			solver_fee TEXT NOT NULL,
			estimated_time INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			submitted INTEGER NOT NULL DEFAULT 0,
			tx_hash TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (intent_id, route)
		);

		CREATE TABLE IF NOT EXISTS scan_checkpoints (
			chain_id INTEGER PRIMARY KEY,
			block_number INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_intents_status ON intents(status);
		CREATE INDEX IF NOT EXISTS idx_intents_solver ON intents(selected_solver);
		CREATE INDEX IF NOT EXISTS idx_intents_next_retry ON intents(next_retry_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertIntentOnCreate inserts a newly observed intent. Duplicate event
// delivery is harmless: existing rows are left untouched.
func (s *Store) UpsertIntentOnCreate(ctx context.Context, intent *models.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO intents (id, depositor, usdc_amount, currency, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, intent.ID.Hex(), intent.Depositor.Hex(), intent.UsdcAmount.String(), intent.Currency,
		string(models.StatusCreated), intent.CreatedAt.UTC(), time.Now().UTC())

	return err
}

// RecordCommit stores the commit data once this solver's quote is selected.
func (s *Store) RecordCommit(ctx context.Context, id common.Hash, c Commit) error {
	if len(c.ReceivingInfo) > models.MaxReceivingInfoLen {
		return fmt.Errorf("receiving info exceeds %d bytes", models.MaxReceivingInfoLen)
	}
	if len(c.RecipientName) > models.MaxRecipientNameLen {
		return fmt.Errorf("recipient name exceeds %d bytes", models.MaxRecipientNameLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE intents
		SET status = ?, selected_solver = ?, selected_route = ?, selected_fiat_amount = ?,
		    receiving_info = ?, recipient_name = ?, committed_at = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(models.StatusCommitted), c.Solver.Hex(), c.Route, c.FiatAmount,
		c.ReceivingInfo, c.RecipientName, c.CommittedAt.UTC(), time.Now().UTC(),
		id.Hex(), string(models.StatusCreated), string(models.StatusCommitted))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordTransferID persists the provider transfer id, the crash-recovery
// boundary of the pipeline. It is set at most once: a second call returns
// the stored value without overwriting.
func (s *Store) RecordTransferID(ctx context.Context, id common.Hash, transferID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT provider_transfer_id FROM intents WHERE id = ?`, id.Hex()).Scan(&existing)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE intents SET provider_transfer_id = ?, updated_at = ? WHERE id = ?
	`, transferID, time.Now().UTC(), id.Hex())
	if err != nil {
		return "", err
	}
	return transferID, nil
}

// RecordFulfilled marks the intent settled, keeping the transfer id in case
// it was never persisted (fulfilled-by-other has no local transfer).
func (s *Store) RecordFulfilled(ctx context.Context, id common.Hash, txRef, transferID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE intents
		SET status = ?, fulfillment_tx_ref = ?,
		    provider_transfer_id = CASE WHEN provider_transfer_id = '' THEN ? ELSE provider_transfer_id END,
		    next_retry_at = NULL, updated_at = ?
		WHERE id = ?
	`, string(models.StatusFulfilled), txRef, transferID, time.Now().UTC(), id.Hex())
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCancelled records that an intent left local scope: the depositor
// cancelled it on-chain, or another solver's quote was selected. Fulfilled and
// permanently failed intents are never touched.
func (s *Store) MarkCancelled(ctx context.Context, id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE intents SET status = ?, next_retry_at = NULL, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, string(models.StatusCancelled), time.Now().UTC(), id.Hex(),
		string(models.StatusFulfilled), string(models.StatusFailedPermanent))
	return err
}

// RecordFailure applies the retry policy to a failed attempt. Once the
// provider transfer id is set, fiat has left solver custody: the failure is
// never permanent before the retry cap, whatever the caller thinks. With no
// transfer executed yet, forceRetry decides.
func (s *Store) RecordFailure(ctx context.Context, id common.Hash, cause string, forceRetry bool) (FailureDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		transferID string
		retryCount int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT provider_transfer_id, retry_count FROM intents WHERE id = ?`, id.Hex()).
		Scan(&transferID, &retryCount)
	if err == sql.ErrNoRows {
		return FailureDecision{}, ErrNotFound
	}
	if err != nil {
		return FailureDecision{}, err
	}

	retryable := forceRetry || transferID != ""
	if retryable {
		if decision := retrypolicy.Decide(retryCount); decision.Retry {
			retryAt := time.Now().UTC().Add(decision.Delay)
			_, err = s.db.ExecContext(ctx, `
				UPDATE intents
				SET last_error = ?, retry_count = ?, next_retry_at = ?, updated_at = ?
				WHERE id = ?
			`, cause, retryCount+1, retryAt, time.Now().UTC(), id.Hex())
			if err != nil {
				return FailureDecision{}, err
			}
			return FailureDecision{RetryAt: retryAt, RetryCount: retryCount + 1}, nil
		}
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE intents
		SET status = ?, last_error = ?, next_retry_at = NULL, updated_at = ?
		WHERE id = ?
	`, string(models.StatusFailedPermanent), cause, time.Now().UTC(), id.Hex())
	if err != nil {
		return FailureDecision{}, err
	}
	return FailureDecision{Permanent: true, RetryCount: retryCount}, nil
}

// GetIntent returns the local record for an intent.
func (s *Store) GetIntent(ctx context.Context, id common.Hash) (*models.Intent, error) {
	row := s.db.QueryRowContext(ctx, selectIntent+` WHERE id = ?`, id.Hex())
	return scanIntent(row)
}

// IntentsAwaitingQuote returns created intents this solver has not quoted.
func (s *Store) IntentsAwaitingQuote(ctx context.Context) ([]*models.Intent, error) {
	return s.queryIntents(ctx, selectIntent+`
		WHERE status = ? AND quotes_submitted = 0
		ORDER BY created_at ASC
	`, string(models.StatusCreated))
}

// IntentsAwaitingFulfillment returns intents committed to this solver with
// no fulfillment attempt in flight and no pending retry schedule.
func (s *Store) IntentsAwaitingFulfillment(ctx context.Context, solver common.Address) ([]*models.Intent, error) {
	return s.queryIntents(ctx, selectIntent+`
		WHERE status = ? AND selected_solver = ? AND fulfillment_tx_ref = '' AND next_retry_at IS NULL
		ORDER BY committed_at ASC
	`, string(models.StatusCommitted), solver.Hex())
}

// IntentsReadyForRetry returns committed intents whose retry time elapsed.
func (s *Store) IntentsReadyForRetry(ctx context.Context, solver common.Address, now time.Time) ([]*models.Intent, error) {
	return s.queryIntents(ctx, selectIntent+`
		WHERE status = ? AND selected_solver = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?
		ORDER BY next_retry_at ASC
	`, string(models.StatusCommitted), solver.Hex(), now.UTC())
}

// MarkQuotesSubmitted flags the intent as quoted by this solver.
func (s *Store) MarkQuotesSubmitted(ctx context.Context, id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE intents SET quotes_submitted = 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id.Hex())
	return err
}

// SaveQuote stores or replaces the quote for (intent, route).
func (s *Store) SaveQuote(ctx context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO quotes (intent_id, route, fiat_amount, solver_fee, estimated_time, expires_at, submitted, tx_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.IntentID.Hex(), q.Route, q.FiatAmount, q.SolverFee.String(), q.EstimatedTime,
		q.ExpiresAt.UTC(), q.Submitted, q.TxHash, time.Now().UTC())
	return err
}

// MarkQuoteSubmitted records the on-chain submission of a quote.
func (s *Store) MarkQuoteSubmitted(ctx context.Context, id common.Hash, route models.Route, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE quotes SET submitted = 1, tx_hash = ?, updated_at = ? WHERE intent_id = ? AND route = ?
	`, txHash, time.Now().UTC(), id.Hex(), route)
	return err
}

// QuotesForIntent returns the quotes recorded against an intent.
func (s *Store) QuotesForIntent(ctx context.Context, id common.Hash) ([]*models.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent_id, route, fiat_amount, solver_fee, estimated_time, expires_at, submitted, tx_hash, updated_at
		FROM quotes WHERE intent_id = ? ORDER BY route ASC
	`, id.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		var (
			q      models.Quote
			idHex  string
			feeStr string
		)
		if err := rows.Scan(&idHex, &q.Route, &q.FiatAmount, &feeStr, &q.EstimatedTime,
			&q.ExpiresAt, &q.Submitted, &q.TxHash, &q.UpdatedAt); err != nil {
			return nil, err
		}
		q.IntentID = common.HexToHash(idHex)
		fee, ok := new(big.Int).SetString(feeStr, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt solver_fee %q for intent %s", feeStr, idHex)
		}
		q.SolverFee = fee
		quotes = append(quotes, &q)
	}
	return quotes, rows.Err()
}

// CountByStatus returns how many intents the ledger holds per status.
func (s *Store) CountByStatus(ctx context.Context) (map[models.IntentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM intents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.IntentStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.IntentStatus(status)] = count
	}
	return counts, rows.Err()
}

// LastScannedBlock returns the reconciliation checkpoint, 0 when none.
func (s *Store) LastScannedBlock(ctx context.Context, chainID int64) (uint64, error) {
	var block uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT block_number FROM scan_checkpoints WHERE chain_id = ?`, chainID).Scan(&block)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return block, nil
}

// SetLastScannedBlock persists the reconciliation checkpoint.
func (s *Store) SetLastScannedBlock(ctx context.Context, chainID int64, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scan_checkpoints (chain_id, block_number, updated_at)
		VALUES (?, ?, ?)
	`, chainID, block, time.Now().UTC())
	return err
}

const selectIntent = `
	SELECT id, depositor, usdc_amount, currency, status, created_at, committed_at,
	       selected_solver, selected_route, selected_fiat_amount, receiving_info, recipient_name,
	       quotes_submitted, fulfillment_tx_ref, provider_transfer_id, last_error,
	       retry_count, next_retry_at, updated_at
	FROM intents`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(row rowScanner) (*models.Intent, error) {
	var (
		intent      models.Intent
		idHex       string
		depositor   string
		usdcAmount  string
		status      string
		solver      string
		committedAt sql.NullTime
		nextRetryAt sql.NullTime
	)

	err := row.Scan(&idHex, &depositor, &usdcAmount, &intent.Currency, &status,
		&intent.CreatedAt, &committedAt, &solver, &intent.SelectedRoute,
		&intent.SelectedFiatAmount, &intent.ReceivingInfo, &intent.RecipientName,
		&intent.QuotesSubmitted, &intent.FulfillmentTxRef, &intent.ProviderTransferID,
		&intent.LastError, &intent.RetryCount, &nextRetryAt, &intent.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	intent.ID = common.HexToHash(idHex)
	intent.Depositor = common.HexToAddress(depositor)
	intent.SelectedSolver = common.HexToAddress(solver)
	intent.Status = models.IntentStatus(status)

	amount, ok := new(big.Int).SetString(usdcAmount, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt usdc_amount %q for intent %s", usdcAmount, idHex)
	}
	intent.UsdcAmount = amount

	if committedAt.Valid {
		t := committedAt.Time
		intent.CommittedAt = &t
	}
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		intent.NextRetryAt = &t
	}

	return &intent, nil
}

func (s *Store) queryIntents(ctx context.Context, query string, args ...interface{}) ([]*models.Intent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []*models.Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}
