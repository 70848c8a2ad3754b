// Package cache stores generated image derivatives (thumbnails) on disk so
// the server does not resample the same high resolution source twice.
//
// Entries are tracked in an index.json next to the data files. Each entry
// records the source files it was derived from, so a change to a source can
// drop every derivative built from it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

const indexVersion = "2"

// Cache is a size and age bounded store of derivative files
type Cache struct {
	mu       sync.Mutex
	dir      string
	index    *Index
	maxSize  int64
	maxAge   time.Duration
	strategy EvictionStrategy
	stats    Stats
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Index tracks all cached entries
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry is a single cached derivative
type Entry struct {
	Key         string    `json:"key"`
	Hash        string    `json:"hash"`
	File        string    `json:"file"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int       `json:"access_count"`
	Sources     []string  `json:"sources,omitempty"`
}

// Stats tracks cache effectiveness
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines which entry goes first when the cache is full
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// ParseStrategy maps "lru", "lfu" and "fifo" to a strategy
func ParseStrategy(s string) (EvictionStrategy, error) {
	switch strings.ToLower(s) {
	case "", "lru":
		return LRU, nil
	case "lfu":
		return LFU, nil
	case "fifo":
		return FIFO, nil
	}
	return LRU, fmt.Errorf("unknown eviction strategy %q", s)
}

// Config holds cache configuration
type Config struct {
	Dir      string           // Cache directory (default: $XDG_CACHE_HOME/pinchzoom)
	MaxSize  int64            // Maximum total size in bytes, <= 0 for no limit
	MaxAge   time.Duration    // Maximum entry age, <= 0 for no expiry
	Strategy EvictionStrategy // Eviction strategy (default: LRU)
}

// DefaultDir returns the per-user cache directory
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "pinchzoom")
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		Dir:      DefaultDir(),
		MaxSize:  256 << 20,
		MaxAge:   30 * 24 * time.Hour,
		Strategy: LRU,
	}
}

// New opens or creates a cache in config.Dir
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		config.Dir = DefaultDir()
	}

	if err := os.MkdirAll(filepath.Join(config.Dir, "thumbs"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:      config.Dir,
		maxSize:  config.MaxSize,
		maxAge:   config.MaxAge,
		strategy: config.Strategy,
		stopCh:   make(chan struct{}),
		index:    newIndex(),
	}

	if err := c.loadIndex(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Cache] Ignoring unreadable index in %s: %v", c.dir, err)
		c.index = newIndex()
	}

	go c.cleanup()

	return c, nil
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: make(map[string]*Entry),
		Updated: time.Now(),
	}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the cached data for key
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	if c.isExpired(entry) {
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(c.path(entry))
	if err != nil {
		// Data file vanished behind our back
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	c.stats.Hits++
	return data, true
}

// Put stores data under key. sources lists the files the data was derived
// from; see InvalidateSource.
func (c *Cache) Put(key string, data []byte, sources ...string) error {
	hash := hashBytes(data)
	size := int64(len(data))

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index.Entries[key]; ok && existing.Hash == hash {
		existing.Sources = sources
		return c.saveIndexLocked()
	}

	if c.maxSize > 0 && size > c.maxSize {
		return fmt.Errorf("failed to cache %s: %d bytes exceeds cache size %d", key, size, c.maxSize)
	}
	c.ensureSpaceLocked(size)

	now := time.Now()
	entry := &Entry{
		Key:        key,
		Hash:       hash,
		File:       filepath.Join("thumbs", sanitizeKey(key)+"_"+hash[:8]),
		Size:       size,
		Created:    now,
		LastAccess: now,
		Sources:    sources,
	}

	if err := writeFileAtomic(c.path(entry), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if old, ok := c.index.Entries[key]; ok {
		c.removeLocked(key, old)
	}
	c.index.Entries[key] = entry
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.index.Entries)

	return c.saveIndexLocked()
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		return nil
	}
	c.removeLocked(key, entry)
	return c.saveIndexLocked()
}

// InvalidateSource removes every entry derived from path, or from any file
// below path when it is a directory. It returns the number of removed entries.
func (c *Cache) InvalidateSource(path string) int {
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)

	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.index.Entries {
		for _, src := range entry.Sources {
			if src == path || strings.HasPrefix(src, prefix) {
				c.removeLocked(key, entry)
				count++
				break
			}
		}
	}
	if count > 0 {
		if err := c.saveIndexLocked(); err != nil {
			log.Printf("[Cache] Failed to save index: %v", err)
		}
	}
	return count
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	thumbs := filepath.Join(c.dir, "thumbs")
	if err := os.RemoveAll(thumbs); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.MkdirAll(thumbs, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	c.index = newIndex()
	c.stats = Stats{}
	return c.saveIndexLocked()
}

// Stats returns a snapshot of the cache statistics
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Entries returns a copy of every index entry
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.index.Entries))
	for _, e := range c.index.Entries {
		out = append(out, *e)
	}
	return out
}

// Close stops the cleanup goroutine and saves the index
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

// Key generates a cache key from inputs
func Key(inputs ...string) string {
	h := sha256.New()
	for _, input := range inputs {
		h.Write([]byte(input))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SourceKey derives a key from a source file's identity (path, size and
// modification time) plus variant, e.g. the thumbnail dimensions. The file is
// not read.
func SourceKey(path, variant string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return Key(
		filepath.Clean(path),
		strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(info.ModTime().UnixNano(), 10),
		variant,
	), nil
}

func (c *Cache) path(e *Entry) string {
	return filepath.Join(c.dir, e.File)
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion {
		return fmt.Errorf("index version %q, want %q", index.Version, indexVersion)
	}
	if index.Entries == nil {
		index.Entries = make(map[string]*Entry)
	}

	c.index = &index
	for _, entry := range index.Entries {
		c.stats.TotalSize += entry.Size
	}
	c.stats.EntryCount = len(index.Entries)
	return nil
}

// saveIndexLocked writes the index; caller holds mu
func (c *Cache) saveIndexLocked() error {
	c.index.Updated = time.Now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(c.dir, "index.json"), data)
}

func (c *Cache) isExpired(entry *Entry) bool {
	if c.maxAge <= 0 {
		return false
	}
	return time.Since(entry.Created) > c.maxAge
}

// ensureSpaceLocked evicts entries until needed more bytes fit
func (c *Cache) ensureSpaceLocked(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		key, entry := c.victim()
		c.removeLocked(key, entry)
		c.stats.Evictions++
	}
}

// victim picks the next entry to evict according to the strategy
func (c *Cache) victim() (string, *Entry) {
	var (
		key   string
		found *Entry
	)
	for k, e := range c.index.Entries {
		if found == nil || c.before(e, found) {
			key, found = k, e
		}
	}
	return key, found
}

func (c *Cache) before(a, b *Entry) bool {
	switch c.strategy {
	case LFU:
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
		return a.LastAccess.Before(b.LastAccess)
	case FIFO:
		return a.Created.Before(b.Created)
	default:
		return a.LastAccess.Before(b.LastAccess)
	}
}

func (c *Cache) removeLocked(key string, entry *Entry) {
	if err := os.Remove(c.path(entry)); err != nil && !os.IsNotExist(err) {
		log.Printf("[Cache] Failed to remove %s: %v", entry.File, err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= entry.Size
	c.stats.EntryCount = len(c.index.Entries)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.expire()
		case <-c.stopCh:
			return
		}
	}
}

// expire drops every expired entry
func (c *Cache) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.index.Entries {
		if c.isExpired(entry) {
			c.removeLocked(key, entry)
			removed++
		}
	}
	if removed > 0 {
		if err := c.saveIndexLocked(); err != nil {
			log.Printf("[Cache] Failed to save index: %v", err)
		}
	}
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	sanitized := replacer.Replace(key)
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	return sanitized
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
