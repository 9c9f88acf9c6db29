package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML document accepted by ImportCatalog:
//
//	books:
//	  - isbn: 978-0-441-17271-9
//	    title: Dune
//	    author: Frank Herbert
//	    publisher: Ace
//	    year: 1965
//	    copies: 2
//	members:
//	  - name: Paul Atreides
//	    email: paul@arrakis.example
type Catalog struct {
	Books   []CatalogBook   `yaml:"books"`
	Members []CatalogMember `yaml:"members"`
}

type CatalogBook struct {
	ISBN      string `yaml:"isbn"`
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	Publisher string `yaml:"publisher"`
	Year      int    `yaml:"year"`
	// Copies defaults to one when omitted.
	Copies *int `yaml:"copies"`
}

// CatalogMember gets a generated ID when ID is blank.
type CatalogMember struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Address string `yaml:"address"`
}

// LoadCatalog decodes a catalog, rejecting unknown keys.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// LoadCatalogFile opens path and decodes it with LoadCatalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// ImportEntry is the outcome of importing one catalog entry.
type ImportEntry struct {
	Kind   string // "book" or "member"
	Key    string // ISBN or member name
	Result Result
}

// ImportReport summarises an import.
type ImportReport struct {
	Entries []ImportEntry
	Added   int
	Failed  int
}

// ImportCatalog adds every book, then every member. Failures (duplicates,
// malformed entries) are reported per entry and do not stop the import.
func (l *Library) ImportCatalog(ctx context.Context, c *Catalog) ImportReport {
	var rep ImportReport
	record := func(kind, key string, res Result) {
		rep.Entries = append(rep.Entries, ImportEntry{Kind: kind, Key: key, Result: res})
		if res.OK() {
			rep.Added++
		} else {
			rep.Failed++
		}
	}

	for _, b := range c.Books {
		copies := 1
		if b.Copies != nil {
			copies = *b.Copies
		}
		record("book", b.ISBN, l.AddBook(ctx, b.ISBN, b.Title, b.Author, b.Publisher, b.Year, copies))
	}
	for _, m := range c.Members {
		var res Result
		if m.ID == "" {
			res = l.RegisterMember(ctx, m.Name, m.Email, m.Phone, m.Address)
		} else {
			res = l.AddMember(ctx, m.ID, m.Name, m.Email, m.Phone, m.Address)
		}
		record("member", m.Name, res)
	}
	return rep
}
