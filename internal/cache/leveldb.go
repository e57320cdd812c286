package cache

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBCache stores keys in a LevelDB database.
type LevelDBCache struct {
	db *leveldb.DB
}

// OpenLevelDB opens or creates the database at path.
func OpenLevelDB(path string) (*LevelDBCache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb cache: %w", err)
	}
	return &LevelDBCache{db: db}, nil
}

func (c *LevelDBCache) ReadCount() (uint64, bool, error) {
	raw, err := c.db.Get([]byte(CountKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cached %s %q: %w", CountKey, raw, err)
	}
	return n, true, nil
}

func (c *LevelDBCache) WriteCount(n uint64) error {
	return c.db.Put([]byte(CountKey), []byte(strconv.FormatUint(n, 10)), &opt.WriteOptions{Sync: true})
}

func (c *LevelDBCache) Close() error {
	return c.db.Close()
}
