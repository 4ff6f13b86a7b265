package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"

	buildfp "thinblog/internal/domain/build"
	"thinblog/internal/graph"
)

// Rebuild replaces the whole index with the contents of g.
func (s *Store) Rebuild(g graph.Graph) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bPages, bAlias, bOrder, bTag} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
		}

		pagesB, err := tx.CreateBucket(bPages)
		if err != nil {
			return err
		}
		aliasB, err := tx.CreateBucket(bAlias)
		if err != nil {
			return err
		}
		orderB, err := tx.CreateBucket(bOrder)
		if err != nil {
			return err
		}
		tagB, err := tx.CreateBucket(bTag)
		if err != nil {
			return err
		}

		for _, n := range g.Nodes {
			m := n.Article.Meta
			if strings.TrimSpace(m.Slug) == "" {
				continue
			}
			pb, err := json.Marshal(Page{
				Meta:       m,
				Prev:       n.Prev,
				Next:       n.Next,
				SourcePath: n.Article.Body.SourcePath,
			})
			if err != nil {
				return err
			}
			if err := pagesB.Put([]byte(m.Slug), pb); err != nil {
				return err
			}

			key := makeTimeSlugKey(m.Date.UnixNano(), m.Slug)
			if err := orderB.Put(key, []byte(m.Slug)); err != nil {
				return err
			}
			for _, tag := range m.Tags {
				if tag == "" {
					continue
				}
				sb, err := tagB.CreateBucketIfNotExists([]byte(tag))
				if err != nil {
					return err
				}
				if err := sb.Put(key, []byte(m.Slug)); err != nil {
					return err
				}
			}
		}

		for _, r := range g.Redirects {
			if err := aliasB.Put([]byte(r.From), []byte(r.Slug)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetFingerprint records the fingerprint of the build the index reflects.
func (s *Store) SetFingerprint(fp buildfp.Fingerprint) error {
	b, err := json.Marshal(fp)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bb, err := tx.CreateBucketIfNotExists(bBuild)
		if err != nil {
			return err
		}
		return bb.Put(kFingerprint, b)
	})
}
