package borrowing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libretto/internal/apierror"
)

// postgresStore persists borrowings in PostgreSQL. Dual writes lock the
// item row first so two concurrent loans of the same copy cannot both see
// it available.
type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a borrowing store backed by the given database.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateBorrowing(ctx context.Context, b *Borrowing) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apierror.Internal(err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowxContext(ctx,
		`SELECT status FROM items WHERE id = $1 FOR UPDATE`, b.ItemID,
	).Scan(&status)
	if err != nil {
		return apierror.FromStore(err, fmt.Sprintf("item %s not found", b.ItemID))
	}
	if status != "available" {
		return apierror.Conflict(fmt.Sprintf("item %s is %s, not available", b.ItemID, status))
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO borrowings (id, user_id, item_id, borrow_date, due_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.ItemID, b.BorrowDate, b.DueDate).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return apierror.FromStore(err, "")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = 'borrowed', updated_at = NOW() WHERE id = $1`, b.ItemID,
	); err != nil {
		return apierror.FromStore(err, "")
	}

	if err := tx.Commit(); err != nil {
		return apierror.Internal(err)
	}
	return nil
}

func (s *postgresStore) CloseBorrowing(ctx context.Context, id uuid.UUID, returnedAt time.Time) (*Borrowing, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	defer tx.Rollback()

	b := &Borrowing{}
	err = tx.GetContext(ctx, b, `
		SELECT id, user_id, item_id, borrow_date, due_date, returned_at, created_at, updated_at
		FROM borrowings
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("borrowing %s not found", id))
	}
	if b.ReturnedAt != nil {
		return nil, apierror.Conflict(fmt.Sprintf("borrowing %s is already closed", id))
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE borrowings SET returned_at = $1, updated_at = NOW() WHERE id = $2
	`, returnedAt, id); err != nil {
		return nil, apierror.FromStore(err, "")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = 'available', updated_at = NOW() WHERE id = $1`, b.ItemID,
	); err != nil {
		return nil, apierror.FromStore(err, "")
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.Internal(err)
	}

	b.ReturnedAt = &returnedAt
	return b, nil
}

func (s *postgresStore) ExtendBorrowing(ctx context.Context, id uuid.UUID, days int) (*Borrowing, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	defer tx.Rollback()

	b := &Borrowing{}
	err = tx.GetContext(ctx, b, `
		SELECT id, user_id, item_id, borrow_date, due_date, returned_at, created_at, updated_at
		FROM borrowings
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("borrowing %s not found", id))
	}
	if b.ReturnedAt != nil {
		return nil, apierror.Conflict(fmt.Sprintf("borrowing %s is already closed", id))
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE borrowings
		SET due_date = due_date + $1 * INTERVAL '1 day', updated_at = NOW()
		WHERE id = $2
		RETURNING due_date, updated_at
	`, days, id).Scan(&b.DueDate, &b.UpdatedAt)
	if err != nil {
		return nil, apierror.FromStore(err, "")
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.Internal(err)
	}
	return b, nil
}

func (s *postgresStore) DeleteBorrowing(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apierror.Internal(err)
	}
	defer tx.Rollback()

	var itemID uuid.UUID
	var returnedAt *time.Time
	err = tx.QueryRowxContext(ctx,
		`SELECT item_id, returned_at FROM borrowings WHERE id = $1 FOR UPDATE`, id,
	).Scan(&itemID, &returnedAt)
	if err != nil {
		return apierror.FromStore(err, fmt.Sprintf("borrowing %s not found", id))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM borrowings WHERE id = $1`, id); err != nil {
		return apierror.FromStore(err, "")
	}

	// An open record tracked the item's borrowed status; release it so the
	// item is not stranded with no record pointing at it.
	if returnedAt == nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET status = 'available', updated_at = NOW() WHERE id = $1`, itemID,
		); err != nil {
			return apierror.FromStore(err, "")
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.Internal(err)
	}
	return nil
}

func (s *postgresStore) GetBorrowing(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	b := &Borrowing{}
	err := s.db.GetContext(ctx, b, `
		SELECT id, user_id, item_id, borrow_date, due_date, returned_at, created_at, updated_at
		FROM borrowings
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, apierror.FromStore(err, fmt.Sprintf("borrowing %s not found", id))
	}
	return b, nil
}

func (s *postgresStore) ListBorrowings(ctx context.Context, filter Filter) ([]*Borrowing, error) {
	query := `
		SELECT id, user_id, item_id, borrow_date, due_date, returned_at, created_at, updated_at
		FROM borrowings
		WHERE ($1::uuid IS NULL OR user_id = $1)
		AND (NOT $2 OR returned_at IS NULL)
		ORDER BY due_date, borrow_date
	`
	var userID interface{}
	if filter.UserID != uuid.Nil {
		userID = filter.UserID
	}
	var borrowings []*Borrowing
	if err := s.db.SelectContext(ctx, &borrowings, query, userID, filter.OpenOnly); err != nil {
		return nil, apierror.FromStore(err, "no borrowings")
	}
	return borrowings, nil
}

func (s *postgresStore) ListOverdue(ctx context.Context, now time.Time) ([]*Borrowing, error) {
	query := `
		SELECT id, user_id, item_id, borrow_date, due_date, returned_at, created_at, updated_at
		FROM borrowings
		WHERE returned_at IS NULL AND due_date < $1
		ORDER BY due_date
	`
	var borrowings []*Borrowing
	if err := s.db.SelectContext(ctx, &borrowings, query, now); err != nil {
		return nil, apierror.FromStore(err, "no borrowings")
	}
	return borrowings, nil
}

func (s *postgresStore) ListDueSoon(ctx context.Context, from, until time.Time) ([]*Borrowing, error) {
	query := `
		SELECT id, user_id, item_id, borrow_date, due_date, returned_at, created_at, updated_at
		FROM borrowings
		WHERE returned_at IS NULL AND due_date >= $1 AND due_date <= $2
		ORDER BY due_date
	`
	var borrowings []*Borrowing
	if err := s.db.SelectContext(ctx, &borrowings, query, from, until); err != nil {
		return nil, apierror.FromStore(err, "no borrowings")
	}
	return borrowings, nil
}
