package config

const (
	defaultConfigPath          = "~/.config/cogify/config.toml"
	defaultSourceDir           = "source"
	defaultOutputSubdir        = "translated"
	defaultLogDir              = "~/.local/share/cogify/logs"
	defaultHistoryFile         = "history.db"
	defaultScanPattern         = "*.TIF"
	defaultGDALInfo            = "gdalinfo"
	defaultGDALTranslate       = "gdal_translate"
	defaultGDALWarp            = "gdalwarp"
	defaultGDALBuildVRT        = "gdalbuildvrt"
	defaultCommandTimeout      = 3600
	defaultTargetSRS           = "EPSG:3857"
	defaultWarpFormat          = "GTiff"
	defaultResampling          = "cubicspline"
	defaultOutputType          = "Float32"
	defaultWarpMemoryMB        = 3000
	defaultTileThreshold       = 512
	defaultMosaicName          = "mosaic.vrt"
	defaultWorkers             = 1
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultMaxWorkers          = 64
	defaultMaxWarpMemoryMB     = 1 << 20
	defaultMinCommandTimeout   = 1
	defaultReprojectSubdirNone = "reprojected"
)

// DefaultTranslateOptions are the GTiff creation options used to produce COGs.
// PREDICTOR=2 shrinks LZW output for rasters with smooth value changes.
var DefaultTranslateOptions = []string{
	"TILED=YES",
	"BLOCKXSIZE=512",
	"BLOCKYSIZE=512",
	"COPY_SRC_OVERVIEWS=YES",
	"COMPRESS=LZW",
	"PREDICTOR=2",
	"BIGTIFF=YES",
}

// DefaultWarpOptions are the creation options used for reprojected outputs.
var DefaultWarpOptions = []string{
	"TILED=YES",
	"COMPRESS=DEFLATE",
	"NUM_THREADS=ALL_CPUS",
	"BIGTIFF=YES",
	"COPY_SRC_OVERVIEWS=YES",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			LogDir:    defaultLogDir,
		},
		Scan: Scan{
			Patterns: []string{defaultScanPattern},
		},
		GDAL: GDAL{
			Info:           defaultGDALInfo,
			Translate:      defaultGDALTranslate,
			Warp:           defaultGDALWarp,
			BuildVRT:       defaultGDALBuildVRT,
			CommandTimeout: defaultCommandTimeout,
		},
		Translate: Translate{
			CreationOptions: append([]string(nil), DefaultTranslateOptions...),
		},
		Reproject: Reproject{
			Enabled:         true,
			TargetSRS:       defaultTargetSRS,
			Format:          defaultWarpFormat,
			Resampling:      defaultResampling,
			OutputType:      defaultOutputType,
			WarpMemoryMB:    defaultWarpMemoryMB,
			CreationOptions: append([]string(nil), DefaultWarpOptions...),
		},
		Validation: Validation{
			TileThreshold: defaultTileThreshold,
		},
		Mosaic: Mosaic{
			Name: defaultMosaicName,
		},
		Workflow: Workflow{
			Workers:     defaultWorkers,
			CleanOutput: true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
