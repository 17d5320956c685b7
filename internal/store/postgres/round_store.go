package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// RoundStore implements domain.RoundStore using PostgreSQL.
type RoundStore struct {
	pool *pgxpool.Pool
}

var _ domain.RoundStore = (*RoundStore)(nil)

// NewRoundStore creates a new RoundStore backed by the given connection pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

const roundSelectCols = `id, quote_id, bundle_id, operation, user_id, bid_count,
	winner_id, assignment_id, status, error, created_at, settled_at`

// Insert persists a new auction round.
func (s *RoundStore) Insert(ctx context.Context, round domain.AuctionRound) error {
	op, err := json.Marshal(round.Operation)
	if err != nil {
		return fmt.Errorf("postgres: marshal operation: %w", err)
	}

	const query = `
		INSERT INTO auction_rounds (
			id, quote_id, bundle_id, operation, user_id, bid_count,
			winner_id, assignment_id, status, error, created_at, settled_at
		) VALUES (
			$1, NULLIF($2, '')::uuid, $3, $4, $5, $6,
			NULLIF($7, ''), NULLIF($8, 0), $9, NULLIF($10, ''), $11, $12
		)`

	_, err = s.pool.Exec(ctx, query,
		round.ID, round.QuoteID, int64(round.BundleID), op, round.User,
		round.BidCount, round.WinnerID, int64(round.AssignmentID),
		string(round.Status), round.Error, round.CreatedAt, round.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert round %s: %w", round.ID, err)
	}
	return nil
}

// UpdateStatus advances the round owning the assignment to a non-terminal
// status.
func (s *RoundStore) UpdateStatus(ctx context.Context, assignmentID uint64, status domain.RoundStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auction_rounds SET status = $1 WHERE assignment_id = $2`,
		string(status), int64(assignmentID),
	)
	if err != nil {
		return fmt.Errorf("postgres: update round status for assignment %d: %w", assignmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: round for assignment %d: %w", assignmentID, domain.ErrNotFound)
	}
	return nil
}

// MarkSettled records the terminal outcome of the round owning the
// assignment.
func (s *RoundStore) MarkSettled(ctx context.Context, assignmentID uint64, status domain.RoundStatus, errMsg string, settledAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auction_rounds
		 SET status = $1, error = NULLIF($2, ''), settled_at = $3
		 WHERE assignment_id = $4`,
		string(status), errMsg, settledAt, int64(assignmentID),
	)
	if err != nil {
		return fmt.Errorf("postgres: settle round for assignment %d: %w", assignmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: round for assignment %d: %w", assignmentID, domain.ErrNotFound)
	}
	return nil
}

// Get fetches a round by id.
func (s *RoundStore) Get(ctx context.Context, id string) (domain.AuctionRound, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+roundSelectCols+` FROM auction_rounds WHERE id = $1`, id)

	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AuctionRound{}, fmt.Errorf("postgres: round %s: %w", id, domain.ErrNotFound)
		}
		return domain.AuctionRound{}, fmt.Errorf("postgres: get round %s: %w", id, err)
	}
	return round, nil
}

// ListSettledBefore returns terminal rounds settled strictly before the
// cutoff, oldest first.
func (s *RoundStore) ListSettledBefore(ctx context.Context, before time.Time, limit int) ([]domain.AuctionRound, error) {
	query := `SELECT ` + roundSelectCols + `
		FROM auction_rounds
		WHERE settled_at IS NOT NULL AND settled_at < $1
		ORDER BY settled_at ASC`
	args := []any{before}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled rounds: %w", err)
	}
	defer rows.Close()

	var rounds []domain.AuctionRound
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settled round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// scanRound maps one row onto a domain round, folding SQL NULLs back to Go
// zero values.
func scanRound(row pgx.Row) (domain.AuctionRound, error) {
	var (
		round        domain.AuctionRound
		quoteID      *string
		op           []byte
		winnerID     *string
		assignmentID *int64
		errMsg       *string
	)
	if err := row.Scan(
		&round.ID, &quoteID, &round.BundleID, &op, &round.User,
		&round.BidCount, &winnerID, &assignmentID, &round.Status,
		&errMsg, &round.CreatedAt, &round.SettledAt,
	); err != nil {
		return domain.AuctionRound{}, err
	}

	if err := json.Unmarshal(op, &round.Operation); err != nil {
		return domain.AuctionRound{}, fmt.Errorf("decode operation: %w", err)
	}
	if quoteID != nil {
		round.QuoteID = *quoteID
	}
	if winnerID != nil {
		round.WinnerID = *winnerID
	}
	if assignmentID != nil {
		round.AssignmentID = uint64(*assignmentID)
	}
	if errMsg != nil {
		round.Error = *errMsg
	}
	return round, nil
}
