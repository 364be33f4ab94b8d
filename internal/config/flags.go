package config

import "flag"

// Flags holds command line overrides for the most used settings.
type Flags struct {
	Path string

	expected     int
	overlap      int
	tolerance    int
	maxDistance  int
	highAccuracy bool
	minArea      float64
	maxArea      float64
	jpegScale    int
	results      string
	sidecar      string
	bitmaps      string
	archive      string
	annotate     bool
	colors       bool
	input        string
}

// BindFlags registers the override flags on fs. Call Load after fs.Parse.
func BindFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	f := &Flags{}
	fs.StringVar(&f.Path, "config", "", "Path to a YAML or TOML config file")
	fs.IntVar(&f.expected, "expected", d.Markers.Expected, "Number of markers in the grid")
	fs.IntVar(&f.overlap, "overlap", d.Markers.OverlapThreshold, "Duplicate marker distance in pixels")
	fs.IntVar(&f.tolerance, "tolerance", d.Markers.Tolerance, "Gap tolerance above the smallest spacing")
	fs.IntVar(&f.maxDistance, "max-distance", d.Markers.MaxDistance, "Largest gap that is interpolated")
	fs.BoolVar(&f.highAccuracy, "high-accuracy", d.Markers.HighAccuracy, "Average colors over a 5x5 window")
	fs.Float64Var(&f.minArea, "min-area", d.Contours.MinArea, "Smallest marker area in pixels")
	fs.Float64Var(&f.maxArea, "max-area", d.Contours.MaxArea, "Largest marker area in pixels")
	fs.IntVar(&f.jpegScale, "jpeg-scale", d.Sink.JPEGScale, "JPEG decode scale divisor (1, 2, 4, 8)")
	fs.StringVar(&f.results, "results", d.Output.ResultsFile, "Text results file (empty to disable)")
	fs.StringVar(&f.sidecar, "sidecar", d.Output.SidecarFile, "CBOR results file")
	fs.StringVar(&f.bitmaps, "bitmaps", d.Output.BitmapDir, "Directory for saved bitmaps")
	fs.StringVar(&f.archive, "archive", d.Output.ArchiveFile, "Raw frame archive file")
	fs.BoolVar(&f.annotate, "annotate", d.Output.Annotate, "Save annotated bitmaps")
	fs.BoolVar(&f.colors, "colors", d.Output.Colors, "Write marker colors to the results file")
	fs.StringVar(&f.input, "input", d.Watch.InputDir, "Directory watched for new frames")
	return f
}

// Load reads the config file named by -config, or the defaults, and then
// applies every flag that was set explicitly on fs.
func (f *Flags) Load(fs *flag.FlagSet) (*Config, error) {
	cfg := Default()
	if f.Path != "" {
		var err error
		if cfg, err = Load(f.Path); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "expected":
			cfg.Markers.Expected = f.expected
		case "overlap":
			cfg.Markers.OverlapThreshold = f.overlap
		case "tolerance":
			cfg.Markers.Tolerance = f.tolerance
		case "max-distance":
			cfg.Markers.MaxDistance = f.maxDistance
		case "high-accuracy":
			cfg.Markers.HighAccuracy = f.highAccuracy
		case "min-area":
			cfg.Contours.MinArea = f.minArea
		case "max-area":
			cfg.Contours.MaxArea = f.maxArea
		case "jpeg-scale":
			cfg.Sink.JPEGScale = f.jpegScale
		case "results":
			cfg.Output.ResultsFile = f.results
		case "sidecar":
			cfg.Output.SidecarFile = f.sidecar
		case "bitmaps":
			cfg.Output.BitmapDir = f.bitmaps
		case "archive":
			cfg.Output.ArchiveFile = f.archive
		case "annotate":
			cfg.Output.Annotate = f.annotate
		case "colors":
			cfg.Output.Colors = f.colors
		case "input":
			cfg.Watch.InputDir = f.input
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
