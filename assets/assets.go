package assets

import "embed"

//go:embed index.html plot.js
var FS embed.FS
