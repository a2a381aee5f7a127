package utils

import (
	"regexp"
	"strings"
)

var nonAlphaNum = regexp.MustCompile(`[^A-Z0-9]+`)

// regionNames maps spelled-out US states/territories and Canadian provinces
// (upper-case, punctuation stripped) to their two-letter postal codes.
var regionNames = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR", "CALIFORNIA": "CA",
	"COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE", "FLORIDA": "FL", "GEORGIA": "GA",
	"HAWAII": "HI", "IDAHO": "ID", "ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA",
	"KANSAS": "KS", "KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS", "MISSOURI": "MO",
	"MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV", "NEWHAMPSHIRE": "NH", "NEWJERSEY": "NJ",
	"NEWMEXICO": "NM", "NEWYORK": "NY", "NORTHCAROLINA": "NC", "NORTHDAKOTA": "ND", "OHIO": "OH",
	"OKLAHOMA": "OK", "OREGON": "OR", "PENNSYLVANIA": "PA", "RHODEISLAND": "RI", "SOUTHCAROLINA": "SC",
	"SOUTHDAKOTA": "SD", "TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT",
	"VIRGINIA": "VA", "WASHINGTON": "WA", "WESTVIRGINIA": "WV", "WISCONSIN": "WI", "WYOMING": "WY",
	"DISTRICTOFCOLUMBIA": "DC", "PUERTORICO": "PR", "GUAM": "GU", "VIRGINISLANDS": "VI",

	"ALBERTA": "AB", "BRITISHCOLUMBIA": "BC", "MANITOBA": "MB", "NEWBRUNSWICK": "NB",
	"NEWFOUNDLANDANDLABRADOR": "NL", "NEWFOUNDLAND": "NL", "NOVASCOTIA": "NS", "ONTARIO": "ON",
	"PRINCEEDWARDISLAND": "PE", "QUEBEC": "QC", "SASKATCHEWAN": "SK", "NORTHWESTTERRITORIES": "NT",
	"NUNAVUT": "NU", "YUKON": "YT",
}

var regionCodes = func() map[string]bool {
	m := make(map[string]bool, len(regionNames))
	for _, code := range regionNames {
		m[code] = true
	}
	return m
}()

// NormalizeRegion returns the postal code for a state or province given either
// its code or its name, ignoring case, spacing and punctuation. Unknown input
// is returned trimmed with ok=false so foreign addresses are kept verbatim.
func NormalizeRegion(s string) (string, bool) {
	cleaned := nonAlphaNum.ReplaceAllString(strings.ToUpper(s), "")
	if regionCodes[cleaned] {
		return cleaned, true
	}
	if code, ok := regionNames[cleaned]; ok {
		return code, true
	}
	return strings.TrimSpace(s), false
}
