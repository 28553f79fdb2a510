// Package domain models area climate summaries built from gridded reanalysis counts.
//
// # Area Selection
//
// A map click is turned into a query rectangle around the nearest whole-degree grid
// point. The rectangle height is the zoom-dependent pad factor:
//
//	zoom <= 5: 4°  | zoom 6: 3°  | zoom 7: 2°  | zoom 8: 1°  | zoom >= 9: 0.5°
//
// Longitude padding is divided by cos(lat) so the box keeps a roughly constant
// physical width. Latitudes are clamped to the dataset band [-70, 70]; longitudes are
// left unclamped and normalized to (-180, 180] only for display and grid lookups.
//
// Areas use the nautical mile convention: one degree of latitude is 60 nm.
//
// # Categories and Bins
//
// The upstream service reports counts per category index, e.g.
//
//	{"vel": 2, "dir": 5, "count": 85}
//
// Index numbers are assigned by the dataset build, so they are resolved through the
// metadata tables at query time:
//
//	wind velocity idx  -> Beaufort number (0-12)
//	wave height idx    -> Douglas degree (0-9)
//	rain / current idx -> intensity class (1-5)
//
// Catalog bins reference those category keys, never raw indices. Records whose index
// is missing from the metadata are counted as unmapped and excluded from totals.
//
// # Statistics
//
// Mean/std pairs (one per selected month) combine as the arithmetic mean of means and
// the quadratic mean of standard deviations, sqrt(mean(std²)). Empty series return
// [ErrEmptySeries] instead of NaN.
package domain
