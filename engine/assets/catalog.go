package assets

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/assets/loaders"
	"github.com/maiadx/openxr-app/engine/core"
)

// ShaderAsset is the catalog entry of one shader source and its compiled
// artifact.
type ShaderAsset struct {
	Name     string
	Source   string
	Bytecode string
	Stage    loaders.ShaderStage

	SourceModTime   time.Time
	BytecodeModTime time.Time
}

// HasBytecode reports whether the compiled artifact exists.
func (sa ShaderAsset) HasBytecode() bool {
	return !sa.BytecodeModTime.IsZero()
}

// Stale reports whether the artifact is missing or older than its source.
// Entries that only have an artifact (no source) are never stale.
func (sa ShaderAsset) Stale() bool {
	if sa.SourceModTime.IsZero() {
		return false
	}
	return !sa.HasBytecode() || sa.BytecodeModTime.Before(sa.SourceModTime)
}

// ShaderCatalog indexes the shader resources directory. A watcher keeps the
// index current while the compiler writes artifacts next to the sources.
type ShaderCatalog struct {
	dir    string
	assets map[string]*ShaderAsset
	loader loaders.ShaderLoader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
}

func NewShaderCatalog(dir string) (*ShaderCatalog, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create shader directory watcher")
	}

	return &ShaderCatalog{
		dir:      dir,
		assets:   make(map[string]*ShaderAsset),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize indexes the directory and starts watching it.
func (sc *ShaderCatalog) Initialize() error {
	if sc.isClosed {
		return errors.New("shader catalog already closed")
	}
	if err := sc.fsnotify.Add(sc.dir); err != nil {
		return errors.Wrapf(err, "watch %s", sc.dir)
	}

	entries, err := os.ReadDir(sc.dir)
	if err != nil {
		return errors.Wrapf(err, "read %s", sc.dir)
	}
	for _, e := range entries {
		if !e.IsDir() {
			sc.handleFileEvent(filepath.Join(sc.dir, e.Name()))
		}
	}

	sc.started = true
	go sc.start()

	core.LogDebug("Shader catalog indexed %d shader(s) in %s.", len(sc.Names()), sc.dir)
	return nil
}

func (sc *ShaderCatalog) Dir() string {
	return sc.dir
}

// Close stops the watcher. The index stays readable.
func (sc *ShaderCatalog) Close() error {
	if sc.isClosed {
		return nil
	}
	sc.isClosed = true
	close(sc.done)
	if sc.started {
		<-sc.stopped
		return nil
	}
	return sc.fsnotify.Close()
}

// Lookup returns the entry for a source name such as "fullscreen.vert".
func (sc *ShaderCatalog) Lookup(name string) (ShaderAsset, bool) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	asset, ok := sc.assets[name]
	if !ok {
		return ShaderAsset{}, false
	}
	return *asset, true
}

// Names returns the indexed source names in lexical order.
func (sc *ShaderCatalog) Names() []string {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	names := make([]string, 0, len(sc.assets))
	for name := range sc.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stale returns the entries whose artifact must be (re)built.
func (sc *ShaderCatalog) Stale() []ShaderAsset {
	var out []ShaderAsset
	for _, name := range sc.Names() {
		if asset, ok := sc.Lookup(name); ok && asset.Stale() {
			out = append(out, asset)
		}
	}
	return out
}

// Load reads the compiled artifact of a source name. The path is resolved
// from the directory, so an artifact written after the last index update is
// still found.
func (sc *ShaderCatalog) Load(name string) (*loaders.ShaderBinary, error) {
	return sc.loader.Load(loaders.BytecodePath(filepath.Join(sc.dir, name)))
}

// Refresh re-reads the modification times of one source name.
func (sc *ShaderCatalog) Refresh(name string) {
	sc.handleFileEvent(filepath.Join(sc.dir, name))
	sc.handleFileEvent(loaders.BytecodePath(filepath.Join(sc.dir, name)))
}

func (sc *ShaderCatalog) start() {
	defer close(sc.stopped)
	for {
		select {
		case e, ok := <-sc.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) != 0 {
				sc.handleFileEvent(e.Name)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				sc.removeFile(e.Name)
			}

		case err, ok := <-sc.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader catalog watcher: %s", err)

		case <-sc.done:
			sc.fsnotify.Close()
			return
		}
	}
}

// entryName maps both "x.vert" and "x.vert.spv" to "x.vert".
func entryName(path string) (string, bool) {
	base := filepath.Base(path)
	if loaders.ShaderStageFromPath(base) == loaders.ShaderStageUnknown {
		return "", false
	}
	if filepath.Ext(base) == loaders.BytecodeExtension {
		return base[:len(base)-len(loaders.BytecodeExtension)], true
	}
	return base, true
}

// Handle the creation or modification of a file
func (sc *ShaderCatalog) handleFileEvent(path string) {
	name, ok := entryName(path)
	if !ok {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	asset := sc.entry(name)
	if filepath.Ext(path) == loaders.BytecodeExtension {
		asset.BytecodeModTime = info.ModTime()
	} else {
		asset.SourceModTime = info.ModTime()
	}
}

// Forget the file if it was deleted or renamed away.
func (sc *ShaderCatalog) removeFile(path string) {
	name, ok := entryName(path)
	if !ok {
		return
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	asset, exists := sc.assets[name]
	if !exists {
		return
	}
	if filepath.Ext(path) == loaders.BytecodeExtension {
		asset.BytecodeModTime = time.Time{}
	} else {
		asset.SourceModTime = time.Time{}
	}
	if asset.SourceModTime.IsZero() && asset.BytecodeModTime.IsZero() {
		delete(sc.assets, name)
	}
}

// entry must be called with the write lock held.
func (sc *ShaderCatalog) entry(name string) *ShaderAsset {
	asset, ok := sc.assets[name]
	if !ok {
		source := filepath.Join(sc.dir, name)
		asset = &ShaderAsset{
			Name:     name,
			Source:   source,
			Bytecode: loaders.BytecodePath(source),
			Stage:    loaders.ShaderStageFromPath(name),
		}
		sc.assets[name] = asset
	}
	return asset
}
