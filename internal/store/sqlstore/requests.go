package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"internship/internal/model"
	"internship/internal/store"
)

// LoadRequests returns every request ordered by submission.
func (s *Store) LoadRequests(ctx context.Context) ([]model.Request, error) {
	out, err := loadRequests(ctx, s.db)
	if err != nil {
		return nil, store.Failure("load requests", err)
	}
	return out, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRequests(ctx context.Context, q querier) ([]model.Request, error) {
	rows, err := q.QueryContext(ctx, `SELECT document, version FROM internship_requests ORDER BY submitted_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRequests rewrites the whole collection in one transaction.
func (s *Store) SaveRequests(ctx context.Context, all []model.Request) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM internship_requests`); err != nil {
			return err
		}
		for _, r := range all {
			if err := s.insertRequest(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: request ids must be unique", store.ErrDuplicate)
	}
	return store.Failure("save requests", err)
}

// GetRequest returns a single request by id.
func (s *Store) GetRequest(ctx context.Context, id string) (model.Request, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT document, version FROM internship_requests WHERE id = ?`), id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, store.ErrNotFound
	}
	if err != nil {
		return model.Request{}, store.Failure("get request", err)
	}
	return r, nil
}

// InsertRequest writes a new request.
func (s *Store) InsertRequest(ctx context.Context, r model.Request) error {
	err := s.insertRequest(ctx, s.db, r)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: request %s exists", store.ErrDuplicate, r.ID)
	}
	return store.Failure("insert request", err)
}

// InsertRequestIf reads the collection and inserts r in one transaction. On Postgres the
// table lock makes concurrent guarded inserts queue behind each other; SQLite runs on a
// single connection.
func (s *Store) InsertRequestIf(ctx context.Context, r model.Request, check func([]model.Request) error) error {
	var vetoed error
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if s.dialect == Postgres {
			if _, err := tx.ExecContext(ctx, `LOCK TABLE internship_requests IN SHARE ROW EXCLUSIVE MODE`); err != nil {
				return err
			}
		}
		all, err := loadRequests(ctx, tx)
		if err != nil {
			return err
		}
		if check != nil {
			if vetoed = check(all); vetoed != nil {
				return vetoed
			}
		}
		return s.insertRequest(ctx, tx, r)
	})
	if vetoed != nil {
		return vetoed
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: request %s exists", store.ErrDuplicate, r.ID)
	}
	return store.Failure("insert request", err)
}

// UpdateRequest replaces the stored request when its version is still expectedVersion.
func (s *Store) UpdateRequest(ctx context.Context, r model.Request, expectedVersion int64) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return store.Failure("encode request", err)
	}
	res, err := s.exec(ctx, s.db, `
		UPDATE internship_requests
		SET student_id = ?, department = ?, company = ?, status = ?, document = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, r.StudentID, r.Department, r.Company, string(r.Status), string(doc), r.Version, millis(r.UpdatedAt), r.ID, expectedVersion)
	if err != nil {
		return store.Failure("update request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Failure("update request", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetRequest(ctx, r.ID); err != nil {
		return err
	}
	return fmt.Errorf("%w: request %s is no longer at version %d", store.ErrConflict, r.ID, expectedVersion)
}

func (s *Store) insertRequest(ctx context.Context, q execer, r model.Request) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, q, `
		INSERT INTO internship_requests (id, student_id, department, company, status, document, version, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.StudentID, r.Department, r.Company, string(r.Status), string(doc), r.Version, millis(r.SubmittedDate), millis(r.UpdatedAt))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (model.Request, error) {
	var (
		doc     string
		version int64
		r       model.Request
	)
	if err := row.Scan(&doc, &version); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return r, fmt.Errorf("decode request: %w", err)
	}
	r.Version = version
	return r, nil
}
