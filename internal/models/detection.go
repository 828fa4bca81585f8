package models

// BBox is an axis-aligned bounding box in global full-resolution pixel
// coordinates, half-open on the high side.
type BBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// CellDetection is one detected cell instance. Coordinates are global;
// TileIndex and TileOrigin identify the tile the detection came from so that
// downstream post-processing can deduplicate overlap-region duplicates.
type CellDetection struct {
	BBox       BBox   `json:"bbox"`
	AreaPixels int    `json:"area_pixels"`
	TileIndex  int    `json:"tile_index"`
	TileOrigin [2]int `json:"tile_origin"`
}

// CellSegmentationResult is the final payload persisted for a
// cell-segmentation job.
type CellSegmentationResult struct {
	Type           string          `json:"type"`
	WSIPath        string          `json:"wsi_path"`
	PixelSizeUm    float64         `json:"pixel_size_um"`
	TilesProcessed int             `json:"tiles_processed"`
	NumCells       int             `json:"num_cells"`
	Cells          []CellDetection `json:"cells"`
	MaskPNG        string          `json:"mask_png"`
	OverlayPNG     string          `json:"overlay_png"`
}

// TissueMaskResult is the final payload persisted for a tissue-mask job.
type TissueMaskResult struct {
	Type             string `json:"type"`
	WSIPath          string `json:"wsi_path"`
	TissueMaskPNG    string `json:"tissue_mask_png"`
	TissueOverlayPNG string `json:"tissue_overlay_png"`
}
