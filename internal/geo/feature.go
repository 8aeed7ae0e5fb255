package geo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one entry of a loaded feature collection.
type Feature struct {
	// Index is the zero-based position of the feature in the collection.
	Index int
	// Geometry is the decoded feature geometry; nil when the document has a null geometry.
	Geometry orb.Geometry
	// Properties holds the free-form feature properties.
	Properties geojson.Properties

	rawProps []byte
}

// LoadCollection reads a GeoJSON FeatureCollection from path and returns its
// features in document order.
func LoadCollection(path string) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature collection %q: %w", path, err)
	}
	features, err := ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection %q: %w", path, err)
	}
	return features, nil
}

// ParseCollection decodes a GeoJSON FeatureCollection document.
func ParseCollection(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	out := make([]Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		props := f.Properties
		if props == nil {
			props = geojson.Properties{}
		}
		raw, err := json.Marshal(props)
		if err != nil {
			return nil, fmt.Errorf("encode properties of feature %d: %w", i, err)
		}
		out = append(out, Feature{
			Index:      i,
			Geometry:   f.Geometry,
			Properties: props,
			rawProps:   raw,
		})
	}
	return out, nil
}
