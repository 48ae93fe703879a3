package infer

// Weights order facts flowing into an AVal. A fact with a higher weight
// than anything an AVal has seen replaces its whole type set.
const (
	WeightDefault              = 100
	WeightNewInstance          = 90
	WeightGlobalThis           = 90
	WeightPromiseKeepValue     = 50
	WeightMadeupProto          = 10
	WeightMultiMember          = 6
	WeightCatchError           = 6
	WeightSpeculativeProtoThis = 4
	WeightSpeculativeThis      = 2
	WeightPhantomObj           = 1

	// WeightFixed pins a value's type set; used by unions parsed from
	// type specifications.
	WeightFixed = 100000
)

// Policy holds the tunable thresholds of the engine. None of them are
// load-bearing for correctness; they trade precision against work.
type Policy struct {
	// MaxWorkDepth is the propagation depth budget of a worklist session.
	MaxWorkDepth float64 `toml:"max_work_depth"`
	// WorkDepthDecay shrinks the depth budget per queued item.
	WorkDepthDecay float64 `toml:"work_depth_decay"`
	// MaxTypeFanout caps the forward edges an AVal may have before it
	// stops connecting to plain types.
	MaxTypeFanout int `toml:"max_type_fanout"`
	// MaxProtoInstances caps distinct prototypes a constructor site
	// instantiates.
	MaxProtoInstances int `toml:"max_proto_instances"`
	// MaxCreated caps objects derived by Object.create at one site.
	MaxCreated int `toml:"max_created"`
	// SimilarityDepth bounds structural comparison of types.
	SimilarityDepth int `toml:"similarity_depth"`
	// GenericSearchDepth bounds the forward-edge search for generic
	// functions.
	GenericSearchDepth int `toml:"generic_search_depth"`
	// InstantiateSizeFactor scales a function's instantiation score into
	// the maximum body size that may be re-analyzed per call.
	InstantiateSizeFactor float64 `toml:"instantiate_size_factor"`
	// MaxUnionDisplay is the widest union rendered before giving up.
	MaxUnionDisplay int `toml:"max_union_display"`
	// MaxDisplayProps is the number of properties rendered for an object.
	MaxDisplayProps int `toml:"max_display_props"`
	// ReuseInstances shares one instance per prototype and constructor.
	ReuseInstances bool `toml:"reuse_instances"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MaxWorkDepth:          20,
		WorkDepthDecay:        0.0001,
		MaxTypeFanout:         2,
		MaxProtoInstances:     8,
		MaxCreated:            5,
		SimilarityDepth:       5,
		GenericSearchDepth:    3,
		InstantiateSizeFactor: 5,
		MaxUnionDisplay:       2,
		MaxDisplayProps:       5,
		ReuseInstances:        true,
	}
}
