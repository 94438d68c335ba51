// Package urls holds the project links shown by the CLI, so they can be
// changed in one place.
//
// Usage:
//
//	import "github.com/YanXich/xiaozhi-esp32-server/internal/urls"
//
//	fmt.Printf("Report problems at %s\n", urls.Issues)
package urls
