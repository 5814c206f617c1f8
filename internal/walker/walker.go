package walker

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/scenepack/scenepack/internal/sceneio"
)

// Options configures a Walker (§4.3 Inputs).
type Options struct {
	// Recursive follows every discovered library in turn. Without it,
	// only the root file's own references are emitted.
	Recursive bool

	// FullLibrary expands every object in a followed library rather
	// than only the subset named by the objects that referenced it.
	FullLibrary bool
}

// Walker discovers external references from a root scene file,
// recursively following linked libraries when so configured. A Walker
// is not safe for concurrent use by multiple goroutines on the same
// root; its visit set is shared across the recursive calls one Walk
// makes, not across independent Walk calls (§4.3 Inputs: "a shared
// visit set... for recursion").
type Walker struct {
	opts Options

	mu      sync.Mutex
	visited map[string]map[string]bool // library path -> expanded object names
}

// New returns a Walker configured by opts.
func New(opts Options) *Walker {
	return &Walker{opts: opts, visited: make(map[string]map[string]bool)}
}

// libraryQueueItem is a library discovered while walking one file,
// queued for recursive visitation along with the object names the
// referencing file actually used from it (ID expansion, §4.3).
type libraryQueueItem struct {
	path    string
	level   int
	objects map[string]bool
}

// Walk visits rootPath and, if Recursive is set, every library it
// (transitively) links, calling visit once per discovered external
// reference in block-code-then-file order (§4.3 Ordering). visit
// returning an error aborts the walk; a missing or malformed library
// does not (§4.3 Failure semantics). A library missing on disk is
// emitted as a library reference whose Status is StatusMissing; a
// library that exists but fails to open is skipped without any further
// reference (its library reference was already emitted with StatusOK).
func (w *Walker) Walk(ctx context.Context, rootPath string, visit func(Reference) error) error {
	w.mu.Lock()
	w.visited = make(map[string]map[string]bool)
	w.mu.Unlock()

	rootDir := filepath.Dir(rootPath)
	queue := []libraryQueueItem{{path: rootPath, level: 0, objects: nil}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := queue[0]
		queue = queue[1:]

		libs, err := w.walkFile(ctx, item.path, rootDir, item.level, item.objects, visit)
		if err != nil {
			return err
		}
		if w.opts.Recursive {
			queue = append(queue, libs...)
		}
	}
	return nil
}

// walkFile opens one scene file, emits its references in block-code
// order, and returns the libraries it discovered for the caller to
// queue (§4.3 Recursion: "the walker closes the current file before
// opening any library").
func (w *Walker) walkFile(ctx context.Context, path, rootDir string, level int, wantObjects map[string]bool, visit func(Reference) error) ([]libraryQueueItem, error) {
	if _, err := os.Stat(path); err != nil {
		if level == 0 {
			if err := visit(Reference{
				Kind:      BlockPath,
				Path:      path,
				BlockCode: "LI",
				RootDir:   rootDir,
				Level:     level,
				Status:    StatusMissing,
			}); err != nil {
				return nil, err
			}
		}
		// A library missing on disk was already reported as a
		// StatusMissing reference by the file that referenced it
		// (§4.3 Failure semantics); it is never queued, so this branch
		// for level > 0 only guards direct misuse of walkFile.
		return nil, nil
	}

	c, err := sceneio.Open(path, true)
	if err != nil {
		// A malformed library aborts that library only (§4.3 Failure
		// semantics); the root file is allowed to fail its own Walk call.
		if level == 0 {
			return nil, err
		}
		return nil, nil
	}
	defer c.Close()

	baseDir := filepath.Dir(path)
	sceneFile := filepath.Base(path)

	// ID expansion (§4.3): at a followed library, unless the full set is
	// wanted, only datablocks reachable from the objects that actually
	// referenced this library are in scope.
	var closure map[uint64]bool
	restrict := level > 0 && !w.opts.FullLibrary
	if restrict {
		closure = expandClosure(c, wantObjects)
	}

	var libs []libraryQueueItem
	for _, code := range handlerOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := handlers[code]
		for _, blk := range c.BlocksByCode(code) {
			if restrict && code != "LI" && code != "SC" && !closure[blk.OldAddress] {
				continue
			}
			refs, err := h(c, blk)
			if err != nil {
				return nil, err
			}
			for _, fr := range refs {
				ref := Reference{
					Kind:       fr.kind,
					Path:       fr.path,
					BlockCode:  code,
					RootDir:    rootDir,
					SceneFile:  sceneFile,
					BaseDir:    baseDir,
					Level:      level,
					Status:     StatusOK,
					IsSequence: fr.isSequence,
				}
				if code == "LI" {
					libPath := resolveReferencePath(fr.path, baseDir)
					if _, err := os.Stat(libPath); err != nil {
						ref.Status = StatusMissing
					} else {
						libs = append(libs, libraryQueueItem{
							path:    libPath,
							level:   level + 1,
							objects: w.newNamesFor(libPath, objectNamesForLibrary(c, blk.OldAddress)),
						})
					}
				}
				if err := visit(ref); err != nil {
					return nil, err
				}
			}
		}
	}
	return libs, nil
}

// newNamesFor subtracts names already expanded for libPath (from the
// shared visit set) out of wanted, records the remainder as now
// expanded, and returns that remainder — the names this recursion into
// libPath still needs to traverse (§4.3 Recursion: "the walker subtracts
// names already expanded for that library... and records the new
// ones").
func (w *Walker) newNamesFor(libPath string, wanted map[string]bool) map[string]bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	set, ok := w.visited[libPath]
	if !ok {
		set = make(map[string]bool)
		w.visited[libPath] = set
	}
	fresh := make(map[string]bool)
	for name := range wanted {
		if !set[name] {
			fresh[name] = true
			set[name] = true
		}
	}
	return fresh
}

// resolveReferencePath turns a scene-file-relative reference (the
// on-disk "//"-prefixed convention) into an absolute path rooted at
// baseDir; an already-absolute reference is returned unchanged.
func resolveReferencePath(ref, baseDir string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	trimmed := ref
	if len(trimmed) >= 2 && trimmed[:2] == "//" {
		trimmed = trimmed[2:]
	}
	return filepath.Join(baseDir, trimmed)
}
