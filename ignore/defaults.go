package ignore

// DefaultExcludedDirs lists directory names that are never walked, at any depth.
// They hold version-control state, dependency trees or build output, none of
// which an agent should browse or edit through the sandbox.
var DefaultExcludedDirs = []string{
	// Version control
	".git",
	".svn",
	".hg",
	".bzr",

	// Dependencies
	"node_modules",
	"vendor",
	"bower_components",
	".venv",
	"venv",
	"__pycache__",
	".tox",

	// Build output
	"dist",
	"build",
	"out",
	"target",
	"bin",
	"obj",
	".next",
	".nuxt",
	".parcel-cache",
	".cache",
	"coverage",
	".nyc_output",
	"htmlcov",
}

// IgnoreFileNames are read from each index root, in order.
var IgnoreFileNames = []string{".gitignore", ".ignore"}
