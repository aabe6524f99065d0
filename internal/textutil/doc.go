// Package textutil provides the small string helpers shared by the library
// index, the cache manager, and the CLI: title normalization, embedded year
// parsing, and filesystem-safe context keys.
package textutil
