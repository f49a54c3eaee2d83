// Package sonde maps radiosonde type shortforms, as emitted by the scanner
// and carried in log filenames, to human-readable names.
package sonde

// shortNames maps the tag used on the wire and in filenames to a
// human-readable manufacturer/model name. Unknown shortforms pass through
// Lookup unchanged rather than erroring — new sonde types show up in the
// scanner before this table is updated.
var shortNames = map[string]string{
	"RS41":   "Vaisala RS41",
	"RS92":   "Vaisala RS92",
	"IMET":   "Intermet iMet",
	"DFM":    "Graw DFM",
	"M10":    "Meteo-Radiy MRZ-M10",
	"M20":    "Meteo-Radiy M20",
	"LMS6":   "Lockheed Martin LMS6",
	"MK2LMS": "Lockheed Martin LMS6-1680 (MK2A)",
	"MEISEI": "Meisei iMS-100",
	"MRZ":    "Meteo-Radiy MRZ",
}

// Lookup returns the human-readable name for a shortform, or short itself
// when it is not a recognized type.
func Lookup(short string) string {
	if name, ok := shortNames[short]; ok {
		return name
	}
	return short
}

// Known reports whether short appears in the shortform table.
func Known(short string) bool {
	_, ok := shortNames[short]
	return ok
}
