package quire

import _ "embed"

// Version is the released version of quire, read from the VERSION file.
//
//go:embed VERSION
var Version string
