package assets

// Config holds the settings the build configuration does not carry.
type Config struct {
	// Directory relative entry and output paths resolve against; empty means the current directory
	WorkDir string
	// Path to metafile (relative to WorkDir)
	MetafilePath string
	// Whether to write gzip and zstd copies next to each artifact
	Precompress bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MetafilePath: "_build/meta.json",
	}
}
