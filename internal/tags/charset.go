package tags

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// latin1Charsets are the Specific Character Set defined terms that mean the
// file's string values are ISO 8859-1 encoded. Older modalities emit these
// routinely; left untranscoded, accented patient names arrive as mojibake.
var latin1Charsets = map[string]struct{}{
	"ISO_IR 100":      {},
	"ISO 2022 IR 100": {},
	"ISO-8859-1":      {},
	"ISO 8859-1":      {},
	"LATIN1":          {},
}

func transcodeValues(values map[string]string, charset string) map[string]string {
	if _, ok := latin1Charsets[strings.ToUpper(strings.TrimSpace(charset))]; !ok {
		return values
	}
	decoder := charmap.ISO8859_1.NewDecoder()
	out := make(map[string]string, len(values))
	for code, value := range values {
		decoded, err := decoder.String(value)
		if err != nil {
			// Keep the raw value rather than dropping the tag.
			out[code] = value
			continue
		}
		out[code] = decoded
	}
	return out
}
