package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var _ Store = (*Database)(nil)

// Database is the SQLite-backed Store.
type Database struct {
	db *sqlx.DB

	upsertBookStmt   *sqlx.NamedStmt
	upsertMemberStmt *sqlx.NamedStmt
	insertLoanStmt   *sqlx.NamedStmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string, busyTimeout time.Duration) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1", dbPath, busyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sqlx.NamedStmt{d.upsertBookStmt, d.upsertMemberStmt, d.insertLoanStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL DEFAULT '',
            publication_year INTEGER NOT NULL DEFAULT 0,
            total_copies INTEGER NOT NULL DEFAULT 1,
            available_copies INTEGER NOT NULL DEFAULT 1,
            added_at TIMESTAMP NOT NULL,
            seq INTEGER NOT NULL,
            CHECK (available_copies >= 0 AND available_copies <= total_copies)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            member_id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            joined_at TIMESTAMP NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            total_fines INTEGER NOT NULL DEFAULT 0 CHECK (total_fines >= 0),
            seq INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            member_id TEXT NOT NULL REFERENCES members(member_id),
            isbn TEXT NOT NULL REFERENCES books(isbn),
            borrowed_at TIMESTAMP NOT NULL,
            due_date TIMESTAMP NOT NULL,
            PRIMARY KEY (member_id, isbn)
        );`,
		`CREATE TABLE IF NOT EXISTS borrowing_records (
            record_id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id TEXT NOT NULL,
            isbn TEXT NOT NULL,
            borrow_date TIMESTAMP NOT NULL,
            due_date TIMESTAMP NOT NULL,
            return_date TIMESTAMP,
            fine_paid INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_borrowing_records_member ON borrowing_records(member_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.upsertBookStmt, err = d.db.PrepareNamed(`
        INSERT INTO books(isbn,title,author,publisher,publication_year,total_copies,available_copies,added_at,seq)
        VALUES(:isbn,:title,:author,:publisher,:publication_year,:total_copies,:available_copies,:added_at,:seq)
        ON CONFLICT(isbn) DO UPDATE SET
            title=excluded.title, author=excluded.author, publisher=excluded.publisher,
            publication_year=excluded.publication_year, total_copies=excluded.total_copies,
            available_copies=excluded.available_copies`); err != nil {
		return err
	}
	if d.upsertMemberStmt, err = d.db.PrepareNamed(`
        INSERT INTO members(member_id,name,email,phone,address,joined_at,is_active,total_fines,seq)
        VALUES(:member_id,:name,:email,:phone,:address,:joined_at,:is_active,:total_fines,:seq)
        ON CONFLICT(member_id) DO UPDATE SET
            name=excluded.name, email=excluded.email, phone=excluded.phone, address=excluded.address,
            is_active=excluded.is_active, total_fines=excluded.total_fines`); err != nil {
		return err
	}
	if d.insertLoanStmt, err = d.db.PrepareNamed(`
        INSERT INTO loans(member_id,isbn,borrowed_at,due_date)
        VALUES(:member_id,:isbn,:borrowed_at,:due_date)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Load reads every book and member, in insertion order, with current loans attached.
func (d *Database) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := d.db.SelectContext(ctx, &snap.Books, `
        SELECT isbn,title,author,publisher,publication_year,total_copies,available_copies,added_at,seq
        FROM books ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	if err := d.db.SelectContext(ctx, &snap.Members, `
        SELECT member_id,name,email,phone,address,joined_at,is_active,total_fines,seq
        FROM members ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	var loans []Loan
	if err := d.db.SelectContext(ctx, &loans, `
        SELECT member_id,isbn,borrowed_at,due_date FROM loans ORDER BY borrowed_at`); err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	byID := make(map[string]*Member, len(snap.Members))
	for i := range snap.Members {
		byID[snap.Members[i].ID] = &snap.Members[i]
	}
	for _, l := range loans {
		if m, ok := byID[l.MemberID]; ok {
			m.Loans = append(m.Loans, l)
		}
	}
	return snap, nil
}

// Apply writes the changeset in one transaction. A member's loan rows are
// replaced by the loans it carries.
func (d *Database) Apply(ctx context.Context, cs Changeset) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range cs.Books {
		if _, err := tx.NamedStmtContext(ctx, d.upsertBookStmt).ExecContext(ctx, b); err != nil {
			return fmt.Errorf("save book %s: %w", b.ISBN, err)
		}
	}
	for _, m := range cs.Members {
		if _, err := tx.NamedStmtContext(ctx, d.upsertMemberStmt).ExecContext(ctx, m); err != nil {
			return fmt.Errorf("save member %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE member_id=?`, m.ID); err != nil {
			return fmt.Errorf("clear loans of %s: %w", m.ID, err)
		}
		for _, l := range m.Loans {
			if _, err := tx.NamedStmtContext(ctx, d.insertLoanStmt).ExecContext(ctx, l); err != nil {
				return fmt.Errorf("save loan %s/%s: %w", m.ID, l.ISBN, err)
			}
		}
	}
	if r := cs.Opened; r != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO borrowing_records(member_id,isbn,borrow_date,due_date) VALUES(?,?,?,?)`,
			r.MemberID, r.ISBN, r.BorrowedAt, r.DueDate); err != nil {
			return fmt.Errorf("record borrowing: %w", err)
		}
	}
	if r := cs.Closed; r != nil {
		if _, err := tx.ExecContext(ctx, `
            UPDATE borrowing_records SET return_date=?, fine_paid=?
            WHERE member_id=? AND isbn=? AND return_date IS NULL`,
			r.ReturnedAt, r.Fine, r.MemberID, r.ISBN); err != nil {
			return fmt.Errorf("record return: %w", err)
		}
	}
	return tx.Commit()
}

type recordRow struct {
	ID         int64        `db:"record_id"`
	MemberID   string       `db:"member_id"`
	ISBN       string       `db:"isbn"`
	BorrowedAt time.Time    `db:"borrow_date"`
	DueDate    time.Time    `db:"due_date"`
	ReturnedAt sql.NullTime `db:"return_date"`
	Fine       Cents        `db:"fine_paid"`
}

// LoanHistory returns the member's borrowing records, oldest first.
func (d *Database) LoanHistory(ctx context.Context, memberID string) ([]LoanRecord, error) {
	var rows []recordRow
	if err := d.db.SelectContext(ctx, &rows, `
        SELECT record_id,member_id,isbn,borrow_date,due_date,return_date,fine_paid
        FROM borrowing_records WHERE member_id=? ORDER BY record_id`, memberID); err != nil {
		return nil, err
	}
	records := make([]LoanRecord, 0, len(rows))
	for _, r := range rows {
		rec := LoanRecord{
			ID:         r.ID,
			MemberID:   r.MemberID,
			ISBN:       r.ISBN,
			BorrowedAt: r.BorrowedAt,
			DueDate:    r.DueDate,
			Fine:       r.Fine,
		}
		if r.ReturnedAt.Valid {
			t := r.ReturnedAt.Time
			rec.ReturnedAt = &t
		}
		records = append(records, rec)
	}
	return records, nil
}
