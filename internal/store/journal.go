package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/roach88/datacollector/internal/ndn"
	"github.com/roach88/datacollector/internal/record"
)

// RecordEntry is a journalled record.
type RecordEntry struct {
	Device   string
	Seq      uint32
	Name     string
	Cycle    string
	Content  []byte
	Digest   string
	WireSize int
	BuiltAt  time.Time
}

// CommitEntry is a journalled insert command outcome.
type CommitEntry struct {
	Name       string
	Outcome    string
	StatusCode uint64
	Reason     string
	Attempts   int
	FinishedAt time.Time
}

// Publication is a record with the latest commit outcome reported for it,
// if any.
type Publication struct {
	Record RecordEntry
	Commit *CommitEntry
}

// Digest returns the hex BLAKE3-256 digest of a record's signed wire
// encoding.
func Digest(d *ndn.Data) string {
	sum := blake3.Sum256(d.Wire())
	return hex.EncodeToString(sum[:])
}

// WriteRecord journals a built record. Writing the same record twice is
// a no-op.
func (s *Store) WriteRecord(ctx context.Context, device, cycle string, d *ndn.Data, builtAt time.Time) error {
	seq, err := record.Sequence(d.Name)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(device, seq, name, cycle, content, digest, wire_size, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		device,
		int64(seq),
		d.Name.String(),
		cycle,
		d.Content,
		Digest(d),
		len(d.Wire()),
		builtAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// WriteCommit journals an insert command outcome for a record that was
// previously written with WriteRecord.
func (s *Store) WriteCommit(ctx context.Context, c CommitEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commits
		(name, outcome, status_code, reason, attempts, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.Name,
		c.Outcome,
		int64(c.StatusCode),
		c.Reason,
		c.Attempts,
		c.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}
	return nil
}

// RecentPublications returns up to limit of the device's most recent
// records, newest first, each with its latest commit outcome.
func (s *Store) RecentPublications(ctx context.Context, device string, limit int) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.device, r.seq, r.name, r.cycle, r.content, r.digest, r.wire_size, r.built_at,
		       c.outcome, c.status_code, c.reason, c.attempts, c.finished_at
		FROM records r
		LEFT JOIN commits c
		  ON c.id = (SELECT MAX(id) FROM commits WHERE name = r.name)
		WHERE r.device = ?
		ORDER BY r.seq DESC
		LIMIT ?
	`, device, limit)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	pubs := []Publication{}
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publications: %w", err)
	}
	return pubs, nil
}

// ReadRecord returns the journalled record with the given name.
// Returns sql.ErrNoRows (wrapped) if it was never journalled.
func (s *Store) ReadRecord(ctx context.Context, name string) (RecordEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device, seq, name, cycle, content, digest, wire_size, built_at
		FROM records WHERE name = ?
	`, name)

	var (
		e       RecordEntry
		seq     int64
		builtAt string
	)
	if err := row.Scan(&e.Device, &seq, &e.Name, &e.Cycle, &e.Content, &e.Digest, &e.WireSize, &builtAt); err != nil {
		return RecordEntry{}, fmt.Errorf("read record %s: %w", name, err)
	}
	e.Seq = uint32(seq)
	t, err := time.Parse(time.RFC3339Nano, builtAt)
	if err != nil {
		return RecordEntry{}, fmt.Errorf("read record %s: built_at: %w", name, err)
	}
	e.BuiltAt = t
	return e, nil
}

func scanPublication(rows *sql.Rows) (Publication, error) {
	var (
		p       Publication
		seq     int64
		builtAt string

		outcome    sql.NullString
		statusCode sql.NullInt64
		reason     sql.NullString
		attempts   sql.NullInt64
		finishedAt sql.NullString
	)
	err := rows.Scan(
		&p.Record.Device, &seq, &p.Record.Name, &p.Record.Cycle, &p.Record.Content,
		&p.Record.Digest, &p.Record.WireSize, &builtAt,
		&outcome, &statusCode, &reason, &attempts, &finishedAt,
	)
	if err != nil {
		return Publication{}, fmt.Errorf("scan publication: %w", err)
	}
	p.Record.Seq = uint32(seq)
	if p.Record.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return Publication{}, fmt.Errorf("scan publication built_at: %w", err)
	}

	if outcome.Valid {
		c := &CommitEntry{
			Name:       p.Record.Name,
			Outcome:    outcome.String,
			StatusCode: uint64(statusCode.Int64),
			Reason:     reason.String,
			Attempts:   int(attempts.Int64),
		}
		if c.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String); err != nil {
			return Publication{}, fmt.Errorf("scan publication finished_at: %w", err)
		}
		p.Commit = c
	}
	return p, nil
}
