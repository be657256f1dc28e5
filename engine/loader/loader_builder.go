package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers is an option builder that sets how many workers decode textures concurrently.
//
// Parameters:
//   - n: the worker count, values below 1 are raised to 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithTextureDecoding is an option builder that turns up-front texture decoding on or off.
// With decoding off, textures are decoded on first upload instead.
//
// Parameters:
//   - enabled: whether LoadScene decodes every texture before returning
//
// Returns:
//   - LoaderBuilderOption: a function that applies the decoding option to a loader
func WithTextureDecoding(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.decodeTextures = enabled
	}
}

// WithBaseDir is an option builder that sets the directory external buffers and images of
// LoadSceneReader streams resolve against. LoadScene always uses the file's own directory.
//
// Parameters:
//   - dir: the base directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the base directory option to a loader
func WithBaseDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.baseDir = dir
	}
}
