package dicom

// File is an opaque named slice blob supplied by the caller. The engine never
// mutates a File; backend-facing identifiers are always sanitized copies of
// the name, so the caller's original name survives round-trips untouched.
type File struct {
	Name string
	Data []byte
}

// TagSpec describes one requested metadata tag: Name is the caller-facing key
// under which the value is returned, Code is the backend-facing group|element
// identifier (e.g. "0010|0010").
type TagSpec struct {
	Name string `yaml:"name" json:"name"`
	Code string `yaml:"code" json:"code"`
}

// Well-known tag codes used by the engine itself. Callers are free to request
// any code; these are only the ones the engine has an opinion about.
const (
	// TagCodeInstanceNumber is the per-slice position tag used as the
	// primary ordering key within a series.
	TagCodeInstanceNumber = "0020|0013"

	// TagCodeSpecificCharacterSet names the character repertoire the file's
	// string values are encoded in. The tag reader uses it to transcode
	// Latin-1 headers to UTF-8.
	TagCodeSpecificCharacterSet = "0008|0005"

	// TagCodePatientName is used by the warm-up probe and the CLI default
	// tag preset.
	TagCodePatientName = "0010|0010"

	// TagCodeSeriesDescription labels the acquisition series.
	TagCodeSeriesDescription = "0008|103e"
)
