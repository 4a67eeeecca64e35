package ports

// MediaInfo describes an encoded output file.
type MediaInfo struct {
	Container   string
	Fragmented  bool
	VideoCodec  string
	Width       int
	Height      int
	Duration    float64 // seconds
	VideoFrames int
	VideoTracks int
	AudioTracks int
}

// MediaProber inspects an encoded file after export.
type MediaProber interface {
	// Supports reports whether the prober understands the given container.
	Supports(container string) bool

	// ProbeFile reads the file at path and describes its tracks.
	ProbeFile(path string) (MediaInfo, error)
}
