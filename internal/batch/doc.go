// Package batch runs the validate, translate, validate, reproject workflow
// over every raster found in the source directory.
//
// A run scans the source tree, asks GDAL for a report on every input, and
// queues the inputs that are not cloud optimized. Queued files are translated
// into the output directory with tiling and compression options, the outputs
// are validated again, and the valid outputs are reprojected into a
// subdirectory named after the target SRS. Files are processed in parallel up
// to the configured worker count.
//
// A failure on one file is recorded in that file's result and never stops
// the batch. Cancelling the context stops scheduling new files, waits for the
// running GDAL programs to exit, and returns the context error with a partial
// summary. Each run holds the single-run lock for its duration and is written
// to the history store when one is attached.
package batch
