package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/auth"
)

const (
	// boltDirPerm is the permission mode for the storage directory.
	boltDirPerm = fs.FileMode(0o700)

	// boltFilePerm is the permission mode for the database file.
	boltFilePerm = fs.FileMode(0o600)

	// boltOpenTimeout is the maximum time to wait for the bolt database lock.
	boltOpenTimeout = 5 * time.Second
)

var tokensBucket = []byte("tokens")

// Bolt persists tokens in a bbolt database file.
type Bolt struct {
	db     *bolt.DB
	sealer *sealer
}

// DefaultBoltPath returns ~/.apiconfig/tokens.db.
func DefaultBoltPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", apiconfig.Errorf(apiconfig.ErrStorage, "determining home directory: %w", err)
	}
	return filepath.Join(dir, ".apiconfig", "tokens.db"), nil
}

// OpenBolt opens the database at path, creating it if it does not exist.
// A non-empty secret encrypts stored values.
func OpenBolt(path, secret string) (*Bolt, error) {
	sl, err := newSealer(secret)
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "preparing encryption: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), boltDirPerm); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "creating storage directory: %w", err)
	}

	db, err := bolt.Open(path, boltFilePerm, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "opening token db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tokensBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "initializing token db: %w", err)
	}

	return &Bolt{db: db, sealer: sl}, nil
}

func (b *Bolt) Save(_ context.Context, key string, data auth.TokenData) error {
	if err := checkKey(key); err != nil {
		return err
	}

	raw, err := encode(b.sealer, key, data)
	if err != nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "encoding token %q: %w", key, err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Put([]byte(key), raw)
	})
	if err != nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "saving token %q: %w", key, err)
	}
	return nil
}

func (b *Bolt) Load(_ context.Context, key string) (*auth.TokenData, error) {
	var raw []byte

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(tokensBucket).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction.
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "loading token %q: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}

	return decode(b.sealer, key, raw)
}

func (b *Bolt) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).Delete([]byte(key))
	})
	if err != nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "deleting token %q: %w", key, err)
	}
	return nil
}

func (b *Bolt) Keys(context.Context) ([]string, error) {
	var keys []string

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "listing tokens: %w", err)
	}
	return keys, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("closing token db: %w", err)
	}
	return nil
}
