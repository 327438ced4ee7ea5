package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/logger"
	"github.com/brk3/healthdata/pkg/activity"
	"go.etcd.io/bbolt"
)

const (
	rootBucket          = "profiles"
	summariesBucket     = "summaries"
	authorizationBucket = "authorizations"
	defaultProfile      = "default"
)

var (
	granted = []byte("granted")
	denied  = []byte("denied")
)

// ErrIncompleteDate is returned when a summary cannot be keyed by its day.
var ErrIncompleteDate = healthstore.ErrIncompleteDate

// Store keeps one profile's daily activity summaries in a bbolt file, keyed
// by YYYY-MM-DD so a cursor walks them in calendar order.
type Store struct {
	db       *bbolt.DB
	profile  string
	prompter healthstore.Prompter
}

func Open(path, profile string, prompter healthstore.Prompter) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if profile == "" {
		profile = defaultProfile
	}
	if prompter == nil {
		prompter = healthstore.StaticPrompter(false)
	}

	s := &Store{db: db, profile: profile, prompter: prompter}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getProfileBucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	profiles := tx.Bucket([]byte(rootBucket))
	if !tx.Writable() {
		profile := profiles.Bucket([]byte(s.profile))
		if profile == nil {
			return nil, nil
		}
		return profile.Bucket([]byte(name)), nil
	}
	profile, err := profiles.CreateBucketIfNotExists([]byte(s.profile))
	if err != nil {
		return nil, err
	}
	return profile.CreateBucketIfNotExists([]byte(name))
}

func summaryKey(c activity.DateComponents) ([]byte, error) {
	d, ok := c.Date()
	if !ok || d.Year < 1 || d.Year > 9999 {
		return nil, fmt.Errorf("%w: %+v", ErrIncompleteDate, c)
	}
	return []byte(d.String()), nil
}

func (s *Store) PutSummary(ctx context.Context, sum activity.Summary) error {
	return s.PutSummaries(ctx, []activity.Summary{sum})
}

// PutSummaries writes every summary in one transaction, replacing any summary
// already stored for the same day.
func (s *Store) PutSummaries(ctx context.Context, sums []activity.Summary) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.getProfileBucket(tx, summariesBucket)
		if err != nil {
			return err
		}
		for _, sum := range sums {
			if err := ctx.Err(); err != nil {
				return err
			}
			key, err := summaryKey(sum.Components)
			if err != nil {
				return err
			}
			val, err := json.Marshal(sum)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ActivitySummaries(ctx context.Context, days activity.DayRange) ([]activity.Summary, error) {
	out := []activity.Summary{}
	if days.Empty() {
		return out, nil
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		auth, err := s.getProfileBucket(tx, authorizationBucket)
		if err != nil {
			return err
		}
		if auth == nil || !bytes.Equal(auth.Get([]byte(healthstore.ActivitySummary)), granted) {
			logger.Debug("Activity summaries not readable", "profile", s.profile)
			return nil
		}

		bucket, err := s.getProfileBucket(tx, summariesBucket)
		if err != nil || bucket == nil {
			return err
		}
		c := bucket.Cursor()
		start := []byte(days.Start.String())
		end := []byte(days.End.String())
		for k, v := c.Seek(start); k != nil && bytes.Compare(k, end) <= 0; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var sum activity.Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("decode summary %s: %w", k, err)
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestAuthorization prompts for the categories that have no recorded
// decision yet and reports whether every requested category is readable.
func (s *Store) RequestAuthorization(ctx context.Context, categories []healthstore.Category) (bool, error) {
	var undecided []healthstore.Category
	allGranted := true
	err := s.db.View(func(tx *bbolt.Tx) error {
		auth, err := s.getProfileBucket(tx, authorizationBucket)
		if err != nil {
			return err
		}
		for _, c := range categories {
			var v []byte
			if auth != nil {
				v = auth.Get([]byte(c))
			}
			switch {
			case v == nil:
				undecided = append(undecided, c)
			case !bytes.Equal(v, granted):
				allGranted = false
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if len(undecided) == 0 {
		return allGranted, nil
	}

	ok, err := s.prompter.Confirm(ctx, undecided)
	if err != nil {
		return false, fmt.Errorf("authorization prompt: %w", err)
	}
	decision := denied
	if ok {
		decision = granted
	}
	logger.Info("Recording authorization decision", "profile", s.profile, "granted", ok, "categories", len(undecided))

	err = s.db.Update(func(tx *bbolt.Tx) error {
		auth, err := s.getProfileBucket(tx, authorizationBucket)
		if err != nil {
			return err
		}
		for _, c := range undecided {
			if err := auth.Put([]byte(c), decision); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return allGranted && ok, nil
}

// Revoke forgets every recorded decision so the next request prompts again.
func (s *Store) Revoke() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		profile, err := tx.Bucket([]byte(rootBucket)).CreateBucketIfNotExists([]byte(s.profile))
		if err != nil {
			return err
		}
		if profile.Bucket([]byte(authorizationBucket)) == nil {
			return nil
		}
		return profile.DeleteBucket([]byte(authorizationBucket))
	})
}

var _ healthstore.Store = (*Store)(nil)
