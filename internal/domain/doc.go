// Package domain models water-quality observations recorded by an autonomous
// surface vehicle (ASV) and the statistics used to clean and query them.
//
// # Data Source
//
// Each survey run produces one CSV file with a header row. The columns this
// service depends on are:
//
//	Date m/d/y              calendar date, e.g. "12/16/21"
//	Time hh:mm:ss           24-hour wall-clock time, e.g. "14:03:27"
//	Latitude, Longitude     WGS-84 decimal degrees (optional)
//	C Inside Temp (c)       hull electronics temperature
//	DFS Depth (m)           depth from surface of the sonde
//	DTB Height (m)          height of the sonde above the bottom
//	Total Water Column (m)  DFS + DTB
//	Temperature (c)         water temperature
//	Salinity (ppt)          parts per thousand
//	ODO mg/L                optical dissolved oxygen
//
// Any further columns (pH, turbidity, chlorophyll, ...) are carried through
// unchanged apart from their names.
//
// # Canonical Names
//
// Headers are renamed once, when a batch is cleaned. Known fields follow the
// fixed mapping in [Schema] (e.g. "Temperature (c)" -> "temperature_c").
// Other headers are lower-cased and every run of non-alphanumeric characters
// becomes a single underscore ("ODO (%Sat)" -> "odo_sat"). Nothing after
// cleaning refers to a raw header.
//
// # Missing Values
//
// Empty or unparseable numeric cells become [Missing]. Aggregates skip them
// and report how many were skipped. The cleaning pass removes any row with a
// missing cleaning field, because its z-score is undefined.
//
// # Statistics
//
// Standard deviations are sample standard deviations (n-1 denominator).
// Quantiles interpolate linearly between the two closest ranks, so the median
// of [1 2 3 4 5] is 3 and the 25th percentile of [1 2 3 4] is 1.75.
package domain
