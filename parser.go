package xdp2

import (
	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
)

// ParserConfig is the configuration a [Parser] binds alongside its root
// node (spec.md §3 "A Parser binds a root Parse Node with a configuration
// record").
type ParserConfig struct {
	// MaxFrames is the number of metameta_size-offset frame_size blocks
	// available in a metadata buffer.
	MaxFrames int
	// MaxEncaps caps the number of encapsulation layers crossed in one
	// parse; exceeding it terminates with StopEncapDepth. Defaults to 4.
	MaxEncaps int
	// MaxNodes caps the number of parse-node visits in one call; exceeding
	// it terminates with StopMaxNodes. Defaults to a generous constant.
	MaxNodes int
	// MetaMetaSize is the size, in bytes, of the shared header at the start
	// of every metadata buffer, before the first frame.
	MetaMetaSize int
	// FrameSize is the size, in bytes, of one metadata frame.
	FrameSize int

	// OkayNode, FailNode, and AtEncapNode are optional exit hooks (spec.md
	// §4.5, §4.1 steps 7 and "Exit hook").
	OkayNode    *Node
	FailNode    *Node
	AtEncapNode *Node

	// NumCounters and NumKeys size Control.Key.Counters and Control.Key.Keys
	// respectively.
	NumCounters int
	NumKeys     int
}

// DefaultMaxEncaps and DefaultMaxNodes are the fairness backstops used when
// a [ParserConfig] leaves MaxEncaps or MaxNodes at zero (spec.md §6.1).
const (
	DefaultMaxEncaps = 4
	DefaultMaxNodes  = 1 << 16
)

func (c ParserConfig) normalized() ParserConfig {
	if c.MaxEncaps == 0 {
		c.MaxEncaps = DefaultMaxEncaps
	}
	if c.MaxNodes == 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxFrames == 0 {
		c.MaxFrames = 1
	}
	return c
}

// parserConfigScalars mirrors ParserConfig's non-pointer fields. Cloning
// through this shape keeps deepcopy.Copy off the exit-hook pointers: those
// point into a shared, frozen parse graph (possibly cyclic, via ProtoTable
// successors) that must stay shared, not be walked and duplicated.
type parserConfigScalars struct {
	MaxFrames    int
	MaxEncaps    int
	MaxNodes     int
	MetaMetaSize int
	FrameSize    int
	NumCounters  int
	NumKeys      int
}

// Clone returns a defensive copy of c. Used when one configuration is
// reused to build two parsers whose exit hooks are then allowed to diverge
// without the two parsers aliasing each other's config.
func (c ParserConfig) Clone() ParserConfig {
	src := parserConfigScalars{
		MaxFrames: c.MaxFrames, MaxEncaps: c.MaxEncaps, MaxNodes: c.MaxNodes,
		MetaMetaSize: c.MetaMetaSize, FrameSize: c.FrameSize,
		NumCounters: c.NumCounters, NumKeys: c.NumKeys,
	}
	var dst parserConfigScalars
	if err := deepcopy.Copy(&dst, &src); err != nil {
		// parserConfigScalars holds only plain ints; Copy cannot fail on
		// this shape.
		panic(err)
	}
	return ParserConfig{
		MaxFrames: dst.MaxFrames, MaxEncaps: dst.MaxEncaps, MaxNodes: dst.MaxNodes,
		MetaMetaSize: dst.MetaMetaSize, FrameSize: dst.FrameSize,
		NumCounters: dst.NumCounters, NumKeys: dst.NumKeys,
		OkayNode: c.OkayNode, FailNode: c.FailNode, AtEncapNode: c.AtEncapNode,
	}
}

// Parser binds a root [Node] and a [ParserConfig] (spec.md §3 "A Parser").
// A Parser is immutable after [NewParser] returns and is safe for
// concurrent use by multiple goroutines, each driving its own [Control] and
// metadata buffer (spec.md §5).
type Parser struct {
	id     uuid.UUID
	root   *Node
	config ParserConfig
	fast   bool // whether ParseFast is usable; computed once at construction.
}

// NewParser builds a Parser from a root node and configuration. The graph
// reachable from root is assumed already frozen (built via [GraphBuilder]
// or assembled directly); NewParser does not mutate it.
func NewParser(root *Node, config ParserConfig) *Parser {
	p := &Parser{
		id:     uuid.New(),
		root:   root,
		config: config.normalized(),
	}
	p.fast = validateFastPath(p.root, p.config)
	return p
}

// ID returns the parser's instance identifier, used only to disambiguate
// concurrently running parsers in debug traces and error messages.
func (p *Parser) ID() uuid.UUID { return p.id }

// Root returns the parser's root node.
func (p *Parser) Root() *Node { return p.root }

// Config returns the parser's configuration.
func (p *Parser) Config() ParserConfig { return p.config }

// FastPathEligible reports whether [ParseFast] may be used on this parser
// (spec.md §4.6).
func (p *Parser) FastPathEligible() bool { return p.fast }
