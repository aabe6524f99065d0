// Package media defines the show identity shared by the library clients, the
// feature extractor, and the selection pipeline.
package media
