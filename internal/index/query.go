package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"

	buildfp "thinblog/internal/domain/build"
	"thinblog/internal/domain/content"
	"thinblog/internal/domain/slug"
)

var ErrNotFound = errors.New("not found")

// Page is an indexed page with its neighbours in publication order.
type Page struct {
	Meta       content.ArticleMeta
	Prev       string
	Next       string
	SourcePath string
}

type ListOptions struct {
	Page int
	Size int
	// Newest lists the most recent pages first.
	Newest bool
}

func (s *Store) GetPage(path string) (Page, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Page{}, ErrNotFound
	}
	key := slug.Canonicalise(path)
	var p Page
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bPages)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	return p, err
}

func (s *Store) GetMeta(path string) (content.ArticleMeta, error) {
	p, err := s.GetPage(path)
	return p.Meta, err
}

// ResolveAlias maps any spelling of a page path or legacy path to the
// canonical slug of the page it belongs to.
func (s *Store) ResolveAlias(slugOrOld string) (string, error) {
	slugOrOld = strings.TrimSpace(slugOrOld)
	if slugOrOld == "" {
		return "", ErrNotFound
	}
	key := slug.Canonicalise(slugOrOld)

	var mapped string
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bPages); b != nil && b.Get([]byte(key)) != nil {
			mapped = key
			return nil
		}
		b := tx.Bucket(bAlias)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		mapped = string(v)
		return nil
	})
	return mapped, err
}

// Aliases returns every legacy path with its target.
func (s *Store) Aliases() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bAlias)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, err
}

func (s *Store) Fingerprint() (buildfp.Fingerprint, error) {
	var fp buildfp.Fingerprint
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bBuild)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(kFingerprint)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &fp)
	})
	return fp, err
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func (s *Store) List(opt ListOptions) ([]content.ArticleMeta, error) {
	return s.list(func(tx *bolt.Tx) *bolt.Bucket { return tx.Bucket(bOrder) }, opt)
}

func (s *Store) ListByTag(tag string, opt ListOptions) ([]content.ArticleMeta, error) {
	tag = strings.TrimSpace(strings.ToLower(tag))
	if tag == "" {
		return nil, nil
	}
	return s.list(func(tx *bolt.Tx) *bolt.Bucket {
		parent := tx.Bucket(bTag)
		if parent == nil {
			return nil
		}
		return parent.Bucket([]byte(tag))
	}, opt)
}

func (s *Store) list(bucket func(*bolt.Tx) *bolt.Bucket, opt ListOptions) ([]content.ArticleMeta, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)

	var out []content.ArticleMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := bucket(tx)
		pagesB := tx.Bucket(bPages)
		if idx == nil || pagesB == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := idx.Cursor()
		first, step := cur.First, cur.Next
		if opt.Newest {
			first, step = cur.Last, cur.Prev
		}

		for k, _ := first(); k != nil; k, _ = step() {
			s := slugFromTimeSlugKey(k)
			if s == "" {
				continue
			}
			v := pagesB.Get([]byte(s))
			if v == nil {
				continue
			}
			var p Page
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			out = append(out, p.Meta)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}
