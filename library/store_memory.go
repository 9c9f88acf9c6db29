package library

import (
	"cmp"
	"context"
	"slices"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps state for the lifetime of the process only.
type MemoryStore struct {
	books   map[string]Book
	members map[string]Member
	records []LoanRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[string]Book),
		members: make(map[string]Member),
	}
}

func (s *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	for _, b := range s.books {
		snap.Books = append(snap.Books, b)
	}
	for _, m := range s.members {
		snap.Members = append(snap.Members, m.clone())
	}
	slices.SortFunc(snap.Books, func(a, b Book) int { return cmp.Compare(a.Seq, b.Seq) })
	slices.SortFunc(snap.Members, func(a, b Member) int { return cmp.Compare(a.Seq, b.Seq) })
	return snap, nil
}

func (s *MemoryStore) Apply(_ context.Context, cs Changeset) error {
	for _, b := range cs.Books {
		s.books[b.ISBN] = b
	}
	for _, m := range cs.Members {
		s.members[m.ID] = m.clone()
	}
	if cs.Opened != nil {
		rec := *cs.Opened
		rec.ID = int64(len(s.records) + 1)
		s.records = append(s.records, rec)
	}
	if cs.Closed != nil {
		for i := len(s.records) - 1; i >= 0; i-- {
			r := &s.records[i]
			if r.MemberID == cs.Closed.MemberID && r.ISBN == cs.Closed.ISBN && r.ReturnedAt == nil {
				r.ReturnedAt = cs.Closed.ReturnedAt
				r.Fine = cs.Closed.Fine
				break
			}
		}
	}
	return nil
}

func (s *MemoryStore) LoanHistory(_ context.Context, memberID string) ([]LoanRecord, error) {
	var out []LoanRecord
	for _, r := range s.records {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
