package utils

const (
	// DefaultPageSize applies when a list request carries no limit.
	DefaultPageSize = 20
	// MaxPageSize caps the limit of the work order and stage history lists.
	MaxPageSize = 100
)

// GetPaginationParams resolves optional offset/limit query values into the window a list
// query should read. Missing or negative offsets start at zero; missing or non-positive
// limits fall back to DefaultPageSize, and larger ones are clamped to MaxPageSize.
func GetPaginationParams(offset *int, limit *int) (int, int) {
	resolvedOffset, resolvedLimit := 0, DefaultPageSize
	if offset != nil && *offset > 0 {
		resolvedOffset = *offset
	}
	if limit != nil && *limit > 0 {
		resolvedLimit = min(*limit, MaxPageSize)
	}
	return resolvedOffset, resolvedLimit
}
