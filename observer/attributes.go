package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for retrieval observability spans and metrics.
var (
	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")
	AttrCostUSD         = attribute.Key("embedding.cost_usd")

	AttrCollection = attribute.Key("vector.collection")
	AttrTopK       = attribute.Key("vector.top_k")
	AttrHitCount   = attribute.Key("vector.hit_count")

	AttrStrategy = attribute.Key("chunk.strategy")
	AttrSource   = attribute.Key("chunk.source")
)
