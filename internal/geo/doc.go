// Package geo loads GeoJSON feature collections and derives the per-feature
// values a tile build needs: the bounding region, the tile name and whether
// the feature passes the configured property filters.
package geo
