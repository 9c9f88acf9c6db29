package library

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/boltdb/bolt"
	jsoniter "github.com/json-iterator/go"
)

var _ Store = (*BoltStore)(nil)

var (
	booksBucket   = []byte("books")
	membersBucket = []byte("members")
	recordsBucket = []byte("borrowing_records")
	// member ID + NUL + ISBN -> key of the open record in recordsBucket.
	openLoansBucket = []byte("open_loans")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BoltStore keeps library state in a single BoltDB file, one JSON value per key.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens the database file and creates the buckets it needs.
func NewBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{booksBucket, membersBucket, recordsBucket, openLoansBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}

// Load reads every book and member. Bolt iterates keys in byte order, so
// insertion order is restored from Seq.
func (bs *BoltStore) Load(_ context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := bs.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(booksBucket).ForEach(func(_, v []byte) error {
			var b Book
			if err := json.Unmarshal(v, &b); err != nil {
				return err
			}
			snap.Books = append(snap.Books, b)
			return nil
		}); err != nil {
			return fmt.Errorf("load books: %w", err)
		}
		return tx.Bucket(membersBucket).ForEach(func(_, v []byte) error {
			var m Member
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("load members: %w", err)
			}
			snap.Members = append(snap.Members, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(snap.Books, func(a, b Book) int { return cmp.Compare(a.Seq, b.Seq) })
	slices.SortFunc(snap.Members, func(a, b Member) int { return cmp.Compare(a.Seq, b.Seq) })
	return snap, nil
}

// Apply writes the changeset in one read-write transaction.
func (bs *BoltStore) Apply(_ context.Context, cs Changeset) error {
	return bs.db.Update(func(tx *bolt.Tx) error {
		books, members := tx.Bucket(booksBucket), tx.Bucket(membersBucket)
		for _, b := range cs.Books {
			if err := putJSON(books, []byte(b.ISBN), b); err != nil {
				return fmt.Errorf("save book %s: %w", b.ISBN, err)
			}
		}
		for _, m := range cs.Members {
			if err := putJSON(members, []byte(m.ID), m); err != nil {
				return fmt.Errorf("save member %s: %w", m.ID, err)
			}
		}

		records, open := tx.Bucket(recordsBucket), tx.Bucket(openLoansBucket)
		if r := cs.Opened; r != nil {
			seq, err := records.NextSequence()
			if err != nil {
				return err
			}
			rec := *r
			rec.ID = int64(seq)
			key := itob(seq)
			if err := putJSON(records, key, rec); err != nil {
				return fmt.Errorf("record borrowing: %w", err)
			}
			if err := open.Put(openLoanKey(rec.MemberID, rec.ISBN), key); err != nil {
				return err
			}
		}
		if r := cs.Closed; r != nil {
			okey := openLoanKey(r.MemberID, r.ISBN)
			key := slices.Clone(open.Get(okey))
			if key == nil {
				return fmt.Errorf("record return: no open record for %s/%s", r.MemberID, r.ISBN)
			}
			var rec LoanRecord
			if err := json.Unmarshal(records.Get(key), &rec); err != nil {
				return fmt.Errorf("record return: %w", err)
			}
			rec.ReturnedAt = r.ReturnedAt
			rec.Fine = r.Fine
			if err := putJSON(records, key, rec); err != nil {
				return fmt.Errorf("record return: %w", err)
			}
			return open.Delete(okey)
		}
		return nil
	})
}

// LoanHistory scans the records bucket for the member, oldest first.
func (bs *BoltStore) LoanHistory(_ context.Context, memberID string) ([]LoanRecord, error) {
	var out []LoanRecord
	err := bs.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec LoanRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.MemberID == memberID {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func openLoanKey(memberID, isbn string) []byte {
	return []byte(memberID + "\x00" + isbn)
}

// itob encodes a sequence as a big-endian key so cursor order follows insertion.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
