package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Grants remembers which accounts the user has exposed to this client, so a
// passive eth_accounts in a later session returns them without prompting.
type Grants interface {
	Granted(addr common.Address) bool
	Grant(addr common.Address) error
	Revoke() error
}

// FileGrants persists grants as a JSON list of addresses (0600).
type FileGrants struct {
	path string
	mu   sync.Mutex
}

// NewFileGrants returns grants stored at path.
func NewFileGrants(path string) *FileGrants {
	return &FileGrants{path: path}
}

func (g *FileGrants) Granted(addr common.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.load() {
		if strings.EqualFold(a, addr.Hex()) {
			return true
		}
	}
	return false
}

func (g *FileGrants) Grant(addr common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.load()
	for _, a := range list {
		if strings.EqualFold(a, addr.Hex()) {
			return nil
		}
	}
	return g.save(append(list, strings.ToLower(addr.Hex())))
}

// Revoke forgets every grant.
func (g *FileGrants) Revoke() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := os.Remove(g.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// load returns an empty list on any read or parse error.
func (g *FileGrants) load() []string {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}

func (g *FileGrants) save(list []string) error {
	if err := os.MkdirAll(filepath.Dir(g.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(g.path, data, 0o600)
}

// memGrants is the in-process default.
type memGrants struct {
	mu   sync.Mutex
	list map[common.Address]bool
}

func (g *memGrants) Granted(addr common.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.list[addr]
}

func (g *memGrants) Grant(addr common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.list == nil {
		g.list = make(map[common.Address]bool)
	}
	g.list[addr] = true
	return nil
}

func (g *memGrants) Revoke() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.list = nil
	return nil
}
