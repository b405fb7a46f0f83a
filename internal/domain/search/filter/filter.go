// Package filter defines the typed pre-filter for catalog queries.
package filter

// Filters restricts a search or listing to clips matching every set field.
// The zero value matches everything. Fields map onto TAG columns of the clip
// index; translation into query syntax happens in the db layer so no caller
// ever concatenates raw query fragments.
type Filters struct {
	Category    string
	CameraMake  string
	CameraModel string
	Tags        []string // every listed tag must be present
}

// IsEmpty reports whether no filter field is set.
func (f Filters) IsEmpty() bool {
	return f.Category == "" && f.CameraMake == "" && f.CameraModel == "" && len(f.Tags) == 0
}
