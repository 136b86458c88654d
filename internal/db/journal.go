package db

import (
	"database/sql"
	"time"

	"github.com/hpungsan/invoicename/internal/errors"
)

// DefaultJournalLimit caps ListJournal when no limit is given.
const DefaultJournalLimit = 50

// JournalEntry records one rename outcome executed on the local filesystem.
type JournalEntry struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"task_id"`
	ItemID     string  `json:"item_id"`
	SourcePath string  `json:"source_path"`
	TargetPath string  `json:"target_path"`
	Result     string  `json:"result"`
	Message    *string `json:"message,omitempty"`
	CreatedAt  int64   `json:"created_at"`
}

// InsertJournal appends an entry to the rename journal.
func InsertJournal(db *sql.DB, e *JournalEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO rename_journal (
			id, task_id, item_id, source_path, target_path, result, message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		e.ID, e.TaskID, e.ItemID, e.SourcePath, e.TargetPath,
		e.Result, toNullString(e.Message), e.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListJournalInput filters journal entries.
type ListJournalInput struct {
	TaskID string // optional
	Limit  int
}

// ListJournal returns the newest entries first.
func ListJournal(db *sql.DB, in ListJournalInput) ([]JournalEntry, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultJournalLimit
	}

	query := `
		SELECT id, task_id, item_id, source_path, target_path, result, message, created_at
		FROM rename_journal
	`
	args := []any{}
	if in.TaskID != "" {
		query += " WHERE task_id = ?"
		args = append(args, in.TaskID)
	}
	// ULIDs sort by time, so id breaks ties within one second.
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		var message sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &e.ItemID, &e.SourcePath, &e.TargetPath,
			&e.Result, &message, &e.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Message = fromNullString(message)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// toNullString converts *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
