package directory

import (
	"context"
	"sync"

	"zombiezen.com/go/log"

	"github.com/sxyafiq/fuzzyflake"
)

// Directory keeps one fuzzy index per guild, synchronized with the
// membership store. Lookups run against the in-memory indexes; mutations
// write through to the store first.
//
// All methods are safe for concurrent use.
type Directory struct {
	store            *Store
	maxDigitsChopped int
	logger           log.Logger

	mu      sync.Mutex
	indexes map[fuzzyflake.ID]*fuzzyflake.Index
}

// New creates a Directory over the given store. maxDigitsChopped is the
// per-end digit tolerance applied to every guild's index.
func New(store *Store, maxDigitsChopped int) (*Directory, error) {
	// Validate the tolerance once up front rather than on first use.
	if _, err := fuzzyflake.New(maxDigitsChopped); err != nil {
		return nil, err
	}
	return &Directory{
		store:            store,
		maxDigitsChopped: maxDigitsChopped,
		logger:           log.Discard,
		indexes:          make(map[fuzzyflake.ID]*fuzzyflake.Index),
	}, nil
}

// SetLogger routes the Directory's diagnostics to the given logger.
// The default discards everything.
func (d *Directory) SetLogger(logger log.Logger) {
	if logger == nil {
		logger = log.Discard
	}
	d.mu.Lock()
	d.logger = logger
	for _, x := range d.indexes {
		x.SetLogger(logger)
	}
	d.mu.Unlock()
}

// Rebuild drops every in-memory index and reloads them from the store.
// Call it once at startup and after any out-of-band store change.
func (d *Directory) Rebuild(ctx context.Context) error {
	guilds, err := d.store.Guilds(ctx)
	if err != nil {
		return err
	}

	indexes := make(map[fuzzyflake.ID]*fuzzyflake.Index, len(guilds))
	total := 0
	for _, guild := range guilds {
		members, err := d.store.Members(ctx, guild)
		if err != nil {
			return err
		}
		x, err := fuzzyflake.NewWithCapacity(d.maxDigitsChopped, len(members))
		if err != nil {
			return err
		}
		x.Extend(members)
		indexes[guild] = x
		total += len(members)
	}

	d.mu.Lock()
	logger := d.logger
	for _, x := range indexes {
		x.SetLogger(logger)
	}
	d.indexes = indexes
	d.mu.Unlock()

	log.Logf(ctx, logger, log.Info,
		"directory: rebuilt %d guild indexes covering %d members", len(indexes), total)
	return nil
}

// MemberAdd records a new membership and updates the guild's index.
func (d *Directory) MemberAdd(ctx context.Context, guild, member fuzzyflake.ID) error {
	if err := d.store.AddMember(ctx, guild, member); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	x, ok := d.indexes[guild]
	if !ok {
		var err error
		x, err = fuzzyflake.New(d.maxDigitsChopped)
		if err != nil {
			return err
		}
		x.SetLogger(d.logger)
		d.indexes[guild] = x
	}
	x.Add(member)
	log.Logf(ctx, d.logger, log.Debug,
		"directory: member %d joined guild %d (now %d members)", member, guild, x.Len())
	return nil
}

// MemberRemove deletes a membership and updates the guild's index.
func (d *Directory) MemberRemove(ctx context.Context, guild, member fuzzyflake.ID) error {
	if err := d.store.RemoveMember(ctx, guild, member); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	x, ok := d.indexes[guild]
	if !ok {
		return nil
	}
	x.Remove(member)
	if x.Len() == 0 {
		delete(d.indexes, guild)
	}
	log.Logf(ctx, d.logger, log.Debug,
		"directory: member %d left guild %d", member, guild)
	return nil
}

// Lookup resolves a possibly garbled member ID within one guild. The
// query may have up to the configured number of digits missing from each
// end. Returns false when the guild is unknown or nothing matches.
func (d *Directory) Lookup(guild fuzzyflake.ID, query fuzzyflake.FuzzyID) (fuzzyflake.ID, bool) {
	d.mu.Lock()
	x, ok := d.indexes[guild]
	d.mu.Unlock()
	if !ok {
		return 0, false
	}
	return x.FindFuzzyMatchQuery(query)
}

// LookupAll resolves a query across every guild, returning matches keyed
// by guild ID.
func (d *Directory) LookupAll(query fuzzyflake.FuzzyID) map[fuzzyflake.ID]fuzzyflake.ID {
	d.mu.Lock()
	defer d.mu.Unlock()

	var found map[fuzzyflake.ID]fuzzyflake.ID
	for guild, x := range d.indexes {
		if id, ok := x.FindFuzzyMatchQuery(query); ok {
			if found == nil {
				found = make(map[fuzzyflake.ID]fuzzyflake.ID)
			}
			found[guild] = id
		}
	}
	return found
}

// GuildSize reports how many members the guild's index currently holds.
func (d *Directory) GuildSize(guild fuzzyflake.ID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if x, ok := d.indexes[guild]; ok {
		return x.Len()
	}
	return 0
}

// Guilds returns the IDs of every guild with a live index.
func (d *Directory) Guilds() []fuzzyflake.ID {
	d.mu.Lock()
	defer d.mu.Unlock()
	guilds := make([]fuzzyflake.ID, 0, len(d.indexes))
	for guild := range d.indexes {
		guilds = append(guilds, guild)
	}
	return guilds
}
