package interfaces

import "image"

// PyramidImage is an open handle on a multi-resolution slide raster. One
// handle is opened per job, used from that job's worker only, and closed
// when the job finishes.
type PyramidImage interface {
	// Dimensions returns the full-resolution width and height.
	Dimensions() (int, int)

	// LevelCount returns the number of pyramid levels. Level 0 is full
	// resolution; the highest index is the coarsest level.
	LevelCount() int

	// LevelDimensions returns the width and height of one level.
	LevelDimensions(level int) (int, int)

	// ReadRegion reads a w x h RGB region whose origin (x, y) is expressed
	// in the coordinate space of the requested level.
	ReadRegion(x, y, level, w, h int) (image.Image, error)

	Close() error
}

// SlideOpener opens slide rasters. Open fails with
// models.ErrSourceUnavailable when the path cannot be opened.
type SlideOpener interface {
	Open(path string) (PyramidImage, error)
}
