package storage

// Options configures an Engine.
type Options struct {
	// PageSize is the block page size in bytes (default: 4096).
	PageSize int
}

// DefaultOptions contains the default Engine options.
var DefaultOptions = Options{
	PageSize: DefaultPageSize,
}

// Engine bundles the in-memory storage collaborators.
type Engine struct {
	Blocks *MemoryStore
	Index  *MemoryIndex
	Large  *MemoryLargeSets
}

// NewEngine creates an empty in-memory engine.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	blocks := NewMemoryStore(opts.PageSize)
	return &Engine{
		Blocks: blocks,
		Index:  NewMemoryIndex(),
		Large:  NewMemoryLargeSets(blocks),
	}
}

// BlockStore returns the engine's block store.
func (e *Engine) BlockStore() BlockStore { return e.Blocks }

// KVIndex returns the engine's ordered index.
func (e *Engine) KVIndex() KVIndex { return e.Index }

// LargeSets returns the engine's large set structure.
func (e *Engine) LargeSets() LargeSets { return e.Large }
