package static

import _ "embed"

// APIMd contains the embedded reference for the query API.
//
//go:embed api.md
var APIMd string
