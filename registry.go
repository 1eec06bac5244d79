package ipipe

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry is a mapping from pipe name to a shared pipe handle, so
// independent call sites can address a pipe by name alone. Entries live from
// Init until Close, CloseAll or process exit.
//
// Two locks with strictly separate jobs: the registry lock protects the map
// structure, each entry's lock protects the byte stream so concurrent Print
// calls from arbitrary call sites never interleave their bytes. Only Print
// takes the stream lock — a Print parked in a full-pipe write must not be
// able to wedge Stats or the teardown paths.
type Registry struct {
	mu    sync.RWMutex
	pipes map[string]*registryEntry
}

type registryEntry struct {
	mu      sync.Mutex // serializes Print writes, nothing else
	pipe    *Pipe
	written atomic.Int64
}

// PipeStat is a point-in-time snapshot of one registry entry. BytesWritten
// counts bytes written through the registry's Print entry points, not writes
// on handles handed out by Init or Get.
type PipeStat struct {
	Name         string
	Path         string
	BytesWritten int64
}

// NewRegistry returns an empty registry. The package-level functions operate
// on a process-wide default instance; code that wants its own lifecycle
// (such as a daemon) creates its own.
func NewRegistry() *Registry {
	return &Registry{}
}

// Init creates and registers the pipe for name, returning an independent
// handle sharing the stored pipe's OS resource. The pipe is opened in duplex
// mode, so Init never blocks waiting for a peer. Fails with ErrAlreadyExists
// while an entry for name is live.
func (r *Registry) Init(name string, opts ...Option) (*Pipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pipes[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	pipe, err := OpenName(name, opts...)
	if err != nil {
		return nil, err
	}
	dup, err := pipe.Dup()
	if err != nil {
		pipe.Close()
		return nil, err
	}
	if r.pipes == nil {
		r.pipes = make(map[string]*registryEntry)
	}
	r.pipes[name] = &registryEntry{pipe: pipe}
	return dup, nil
}

// Get returns a new handle sharing the registered pipe's OS resource, or
// ErrNotFound.
func (r *Registry) Get(name string) (*Pipe, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.pipe.Dup()
}

// Close removes the entry for name and closes its stored handle. Handles
// previously handed out by Init or Get stay valid until they are closed
// themselves. Closing an absent name is a no-op.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	e := r.pipes[name]
	delete(r.pipes, name)
	r.mu.Unlock()
	if e == nil {
		return nil
	}
	return closeEntry(e)
}

// CloseAll removes and closes every entry, joining any close errors.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	entries := r.pipes
	r.pipes = nil
	r.mu.Unlock()
	var errs []error
	for name, e := range entries {
		if err := closeEntry(e); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func closeEntry(e *registryEntry) error {
	// No stream lock here: a Print blocked in a full-pipe write holds it,
	// and closing the stored handle is exactly what unblocks that write.
	return e.pipe.Close()
}

// Print writes s to the named pipe. This is the write-only entry point for
// call sites that never hold a handle. The entry lock makes each Print
// atomic with respect to other Print calls on the same name. Fails with
// ErrNotFound when the name is not registered.
func (r *Registry) Print(name, s string) (int, error) {
	e, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.pipe.Write([]byte(s))
	e.written.Add(int64(n))
	return n, err
}

// Printf formats like fmt.Sprintf and Prints the result.
func (r *Registry) Printf(name, format string, args ...any) (int, error) {
	return r.Print(name, fmt.Sprintf(format, args...))
}

// Println Prints s followed by a newline.
func (r *Registry) Println(name, s string) (int, error) {
	return r.Print(name, s+"\n")
}

// Stats returns a snapshot of every live entry, sorted by name.
func (r *Registry) Stats() []PipeStat {
	r.mu.RLock()
	entries := make(map[string]*registryEntry, len(r.pipes))
	for name, e := range r.pipes {
		entries[name] = e
	}
	r.mu.RUnlock()

	stats := make([]PipeStat, 0, len(entries))
	for name, e := range entries {
		stats = append(stats, PipeStat{
			Name:         name,
			Path:         e.pipe.Path(),
			BytesWritten: e.written.Load(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (r *Registry) lookup(name string) (*registryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.pipes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

var defaultRegistry = NewRegistry()

// Init registers name in the process-wide default registry.
func Init(name string, opts ...Option) (*Pipe, error) { return defaultRegistry.Init(name, opts...) }

// Get fetches a handle from the process-wide default registry.
func Get(name string) (*Pipe, error) { return defaultRegistry.Get(name) }

// Close closes name in the process-wide default registry.
func Close(name string) error { return defaultRegistry.Close(name) }

// CloseAll tears down the process-wide default registry.
func CloseAll() error { return defaultRegistry.CloseAll() }

// Print writes to a pipe in the process-wide default registry.
func Print(name, s string) (int, error) { return defaultRegistry.Print(name, s) }

// Printf formats and writes to a pipe in the process-wide default registry.
func Printf(name, format string, args ...any) (int, error) {
	return defaultRegistry.Printf(name, format, args...)
}

// Println writes a line to a pipe in the process-wide default registry.
func Println(name, s string) (int, error) { return defaultRegistry.Println(name, s) }

// Stats snapshots the process-wide default registry.
func Stats() []PipeStat { return defaultRegistry.Stats() }
