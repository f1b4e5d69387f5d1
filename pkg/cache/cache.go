package cache

// Executable is the resolved capability a command name maps to.
// A nil Executable stored in the cache is a negative entry: the name is known
// but holds nothing usable.
type Executable any

// Cache maps command names to resolved executables.
//
// Cache does no locking of its own. All of Clear, AddOrUpdate, Rename and
// Remove must be serialized by the owner (the interpreter's command table
// lock); only the statistics counters are safe for concurrent use.
type Cache struct {
	entries map[string]Executable
	stats   *Statistics
}

// Option configures a Cache
type Option func(*Cache)

// WithStatistics enables event counters on the cache
func WithStatistics() Option {
	return func(c *Cache) { c.stats = NewStatistics() }
}

// New creates an empty Cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Executable),
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// Count returns the number of cached names.
func (c *Cache) Count() int {
	if c == nil || c.entries == nil {
		return 0
	}

	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if c == nil || c.entries == nil {
		return
	}

	clear(c.entries)
	c.stats.Increment(Clear)
}

// TryGet looks up name. Without validate, any stored entry is a hit, nil
// included; with validate, only a non-nil value counts.
func (c *Cache) TryGet(name string, validate bool) (Executable, bool) {
	if c != nil && c.entries != nil {
		if exec, ok := c.entries[name]; ok {
			if !validate || exec != nil {
				c.stats.Increment(Found)
				return exec, true
			}
		}
	}

	c.statsOrNil().Increment(NotFound)
	return nil, false
}

// AddOrUpdate stores exec under name. With invalidate the whole cache is
// dropped first, because the definition change may alter how other names
// resolve.
func (c *Cache) AddOrUpdate(name string, exec Executable, invalidate bool) bool {
	if c == nil || c.entries == nil {
		return false
	}

	if invalidate {
		clear(c.entries)
		c.stats.Increment(Clear)
	} else if _, ok := c.entries[name]; ok {
		c.entries[name] = exec
		c.stats.Increment(Change)
		return true
	}

	c.entries[name] = exec
	c.stats.Increment(Add)
	return true
}

// Rename moves a cached command from oldName to newName. The new mapping is
// written whether or not newName was already cached.
func (c *Cache) Rename(oldName, newName string, exec Executable, invalidate bool) bool {
	if c == nil || c.entries == nil {
		return false
	}

	if invalidate {
		clear(c.entries)
		c.stats.Increment(Clear)
	} else if _, ok := c.entries[oldName]; ok {
		delete(c.entries, oldName)
		c.stats.Increment(Remove)
	}

	c.entries[newName] = exec
	c.stats.Increment(Add)
	return true
}

// Remove drops name, or everything when invalidate is set. It reports
// whether anything was removed; an invalidating call always succeeds.
func (c *Cache) Remove(name string, invalidate bool) bool {
	if c == nil || c.entries == nil {
		return false
	}

	if invalidate {
		clear(c.entries)
		c.stats.Increment(Clear)
		return true
	}

	if _, ok := c.entries[name]; !ok {
		return false
	}

	delete(c.entries, name)
	c.stats.Increment(Remove)
	return true
}

// Statistics returns the cache counters, or nil when they are disabled.
func (c *Cache) Statistics() *Statistics {
	return c.statsOrNil()
}

func (c *Cache) statsOrNil() *Statistics {
	if c == nil {
		return nil
	}

	return c.stats
}

// HaveCounts reports whether there is anything to report: live entries or a
// non-zero counter.
func (c *Cache) HaveCounts() bool {
	if c.Count() > 0 {
		return true
	}

	return c.statsOrNil().HaveCounts()
}

// StatisticsProvider is implemented by caches that keep event counters.
type StatisticsProvider interface {
	Statistics() *Statistics
}

var _ StatisticsProvider = (*Cache)(nil)
