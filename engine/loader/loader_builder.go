package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithStrict sets whether unknown keys in a description are rejected.
// Defaults to true.
//
// Parameters:
//   - strict: false to ignore unknown keys
//
// Returns:
//   - LoaderBuilderOption: a function that applies the strict option to a loader
func WithStrict(strict bool) LoaderBuilderOption {
	return func(l *loader) {
		l.strict = strict
	}
}

// WithDescription is an option builder that pre-populates the description cache.
//
// Parameters:
//   - key: the cache key for the description
//   - desc: the description to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the description option to a loader
func WithDescription(key string, desc *Description) LoaderBuilderOption {
	return func(l *loader) {
		l.descriptionCache[key] = desc
	}
}
