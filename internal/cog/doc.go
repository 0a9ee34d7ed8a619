// Package cog decides whether a raster is a cloud optimized GeoTIFF.
//
// All raster facts come from a gdalinfo JSON report; the package never reads
// TIFF bytes. Problems that make a file unusable as a COG are errors, while
// advisory findings such as missing overviews are warnings. A report with no
// errors is valid.
package cog
