package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"internship/internal/model"
	"internship/internal/store"
)

const checkinColumns = `id, student_id, student_name, checkin_date, status, note, created_at, updated_at`

// LoadCheckins returns every check-in ordered by date.
func (s *Store) LoadCheckins(ctx context.Context) ([]model.CheckinEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+checkinColumns+` FROM checkins ORDER BY checkin_date, student_id`)
	if err != nil {
		return nil, store.Failure("load checkins", err)
	}
	defer rows.Close()

	out := []model.CheckinEntry{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, store.Failure("load checkins", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Failure("load checkins", err)
	}
	return out, nil
}

// SaveCheckins rewrites the whole collection in one transaction.
func (s *Store) SaveCheckins(ctx context.Context, all []model.CheckinEntry) error {
	if err := store.CheckUniqueCheckins(all); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkins`); err != nil {
			return err
		}
		for _, c := range all {
			if err := s.insertCheckin(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: check-in ids must be unique", store.ErrDuplicate)
	}
	return store.Failure("save checkins", err)
}

// GetCheckin returns a single check-in by id.
func (s *Store) GetCheckin(ctx context.Context, id string) (model.CheckinEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+checkinColumns+` FROM checkins WHERE id = ?`), id)
	c, err := scanCheckin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CheckinEntry{}, store.ErrNotFound
	}
	if err != nil {
		return model.CheckinEntry{}, store.Failure("get checkin", err)
	}
	return c, nil
}

// InsertCheckin writes a new check-in; the (student_id, checkin_date) constraint rejects duplicates.
func (s *Store) InsertCheckin(ctx context.Context, c model.CheckinEntry) error {
	err := s.insertCheckin(ctx, s.db, c)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: student %s already checked in on %s", store.ErrDuplicate, c.StudentID, c.Date)
	}
	return store.Failure("insert checkin", err)
}

// UpdateCheckin overwrites the mutable fields of an existing check-in.
func (s *Store) UpdateCheckin(ctx context.Context, c model.CheckinEntry) error {
	res, err := s.exec(ctx, s.db, `
		UPDATE checkins SET checkin_date = ?, status = ?, note = ?, updated_at = ?
		WHERE id = ?
	`, c.Date, string(c.Status), c.Note, millis(c.UpdatedAt), c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: student %s already checked in on %s", store.ErrDuplicate, c.StudentID, c.Date)
	}
	if err != nil {
		return store.Failure("update checkin", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Failure("update checkin", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteCheckin removes a check-in.
func (s *Store) DeleteCheckin(ctx context.Context, id string) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM checkins WHERE id = ?`, id)
	if err != nil {
		return store.Failure("delete checkin", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Failure("delete checkin", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) insertCheckin(ctx context.Context, q execer, c model.CheckinEntry) error {
	_, err := s.exec(ctx, q, `
		INSERT INTO checkins (`+checkinColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.StudentID, c.StudentName, c.Date, string(c.Status), c.Note, millis(c.CreatedAt), millis(c.UpdatedAt))
	return err
}

func scanCheckin(row scanner) (model.CheckinEntry, error) {
	var (
		c                model.CheckinEntry
		status           string
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.StudentID, &c.StudentName, &c.Date, &status, &c.Note, &created, &updated); err != nil {
		return c, err
	}
	c.Status = model.CheckinStatus(status)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}
