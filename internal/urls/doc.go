// Package urls provides centralized constants for the documentation URLs
// klipprompt prints in help text and troubleshooting hints.
//
// Usage:
//
//	import "github.com/muurk/klipprompt/internal/urls"
//
//	fmt.Printf("See %s\n", urls.MoonrakerZeroconf)
package urls
