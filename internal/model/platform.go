package model

import "strings"

// Platform identifiers for the supported AI answer services. Each base
// platform may also appear with the search-variant suffix when the query
// was executed with web search enabled.
const (
	PlatformChatGPT    = "chatgpt"
	PlatformClaude     = "claude"
	PlatformPerplexity = "perplexity"
	PlatformGemini     = "gemini"
	PlatformGrok       = "grok"
)

// SearchSuffix marks the web-search-augmented variant of a platform,
// e.g. "chatgpt-search".
const SearchSuffix = "-search"

// BasePlatforms returns the fixed set of base platform identifiers in
// canonical order. The order determines platform-comparison row order.
func BasePlatforms() []string {
	return []string{
		PlatformChatGPT,
		PlatformClaude,
		PlatformPerplexity,
		PlatformGemini,
		PlatformGrok,
	}
}

// BasePlatform strips the search-variant suffix, if present.
func BasePlatform(platform string) string {
	return strings.TrimSuffix(platform, SearchSuffix)
}

// IsSearchVariant reports whether the identifier names a search-augmented variant.
func IsSearchVariant(platform string) bool {
	return strings.HasSuffix(platform, SearchSuffix)
}

// SearchVariant returns the search-augmented identifier for a base platform.
func SearchVariant(base string) string {
	return base + SearchSuffix
}

// KnownPlatform reports whether the identifier is a base platform or a
// search variant of one.
func KnownPlatform(platform string) bool {
	base := BasePlatform(platform)
	for _, p := range BasePlatforms() {
		if p == base {
			return true
		}
	}
	return false
}
