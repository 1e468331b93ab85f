package adapters

// NOTE: If build bloat becomes a concern for unused sources look into build
// tags i.e. //go:build !nohttp

type BuiltInSourceType = string

const (
	HTTPSourceType BuiltInSourceType = "http"
)

// RegisterBuiltins registers all built-in sources by default or only the
// specific ones if keys are provided. client is used by the http source and
// may be nil for [http.DefaultClient].
func RegisterBuiltins(r *Registry, client Doer, sources ...BuiltInSourceType) {
	if len(sources) == 0 {
		sources = append(sources, HTTPSourceType)
	}

	for _, key := range sources {
		switch key {
		case HTTPSourceType:
			RegisterHTTP(r, client)
		}
	}
}
