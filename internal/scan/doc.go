// Package scan enumerates candidate rasters under the source directory using
// doublestar glob patterns.
package scan
