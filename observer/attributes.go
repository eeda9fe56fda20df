package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")
	AttrLLMMethod   = attribute.Key("llm.method")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrStreamChunks = attribute.Key("llm.stream_chunks")

	AttrSearchQuery   = attribute.Key("search.query")
	AttrSearchDepth   = attribute.Key("search.depth")
	AttrSearchSources = attribute.Key("search.sources")
)
