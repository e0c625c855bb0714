package hyper

//////
// Exported functionalities.
//////

// Parameter names of the telecom FT-Transformer search space.
const (
	ParamLR               = "lr"
	ParamWeightDecay      = "weight_decay"
	ParamNumEmbeddingType = "num_embedding_type"
	ParamNHeads           = "n_heads"
	ParamDEmbedding       = "d_embedding"
	ParamNLayers          = "n_layers"
	ParamAttentionDropout = "attention_dropout"
	ParamFFNDropout       = "ffn_dropout"
	ParamResidualDropout  = "residual_dropout"
	ParamBatchSize        = "batch_size"
)

// labelAwareEmbeddings are the numeric-embedding strategies that bin
// features against the training labels and therefore need y at build time.
var labelAwareEmbeddings = map[string]struct{}{
	"T":       {},
	"T-L":     {},
	"T-LR":    {},
	"T-LR-LR": {},
}

// TelecomFTTSpace returns the search space for the telecom churn
// FT-Transformer experiment.
func TelecomFTTSpace() Space {
	s, err := NewSpace(
		NewLogUniform(ParamLR, 1e-5, 1e-1),
		NewLogUniform(ParamWeightDecay, 1e-6, 1e-1),
		Choice(ParamNumEmbeddingType, "L", "LR", "LR-LR", "P", "P-LR", "P-LR-LR"),
		Choice(ParamNHeads, 4, 8, 16),
		Choice(ParamDEmbedding, 16, 32, 64),
		NewIntUniform(ParamNLayers, 1, 6),
		NewUniform(ParamAttentionDropout, 0.0, 0.3),
		NewUniform(ParamFFNDropout, 0.0, 0.3),
		NewUniform(ParamResidualDropout, 0.0, 0.2),
		Choice(ParamBatchSize, 32, 64, 128),
	)
	if err != nil {
		// The space is defined entirely by the constants above.
		panic(err)
	}

	return s
}

// LabelAwareEmbedding reports whether the given numeric-embedding strategy
// requires the training labels when the embedding is constructed.
func LabelAwareEmbedding(strategy string) bool {
	_, ok := labelAwareEmbeddings[strategy]

	return ok
}
