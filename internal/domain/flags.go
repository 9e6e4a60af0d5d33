package domain

import "strings"

// countryCodes maps lowercased country names and common aliases to ISO 3166-1
// alpha-2 codes. Profile locations are free-form, so the match is done on
// whole terms anywhere in the string ("Paris, France" -> FR).
var countryCodes = map[string]string{
	"afghanistan":          "AF",
	"albania":              "AL",
	"algeria":              "DZ",
	"argentina":            "AR",
	"armenia":              "AM",
	"australia":            "AU",
	"austria":              "AT",
	"azerbaijan":           "AZ",
	"bangladesh":           "BD",
	"belarus":              "BY",
	"belgium":              "BE",
	"bolivia":              "BO",
	"bosnia":               "BA",
	"brasil":               "BR",
	"brazil":               "BR",
	"bulgaria":             "BG",
	"cambodia":             "KH",
	"canada":               "CA",
	"chile":                "CL",
	"china":                "CN",
	"colombia":             "CO",
	"costa rica":           "CR",
	"croatia":              "HR",
	"cuba":                 "CU",
	"cyprus":               "CY",
	"czech republic":       "CZ",
	"czechia":              "CZ",
	"denmark":              "DK",
	"deutschland":          "DE",
	"dominican republic":   "DO",
	"ecuador":              "EC",
	"egypt":                "EG",
	"el salvador":          "SV",
	"england":              "GB",
	"espana":               "ES",
	"estonia":              "EE",
	"ethiopia":             "ET",
	"finland":              "FI",
	"france":               "FR",
	"georgia":              "GE",
	"germany":              "DE",
	"ghana":                "GH",
	"great britain":        "GB",
	"greece":               "GR",
	"guatemala":            "GT",
	"honduras":             "HN",
	"hong kong":            "HK",
	"hungary":              "HU",
	"iceland":              "IS",
	"india":                "IN",
	"indonesia":            "ID",
	"iran":                 "IR",
	"iraq":                 "IQ",
	"ireland":              "IE",
	"israel":               "IL",
	"italia":               "IT",
	"italy":                "IT",
	"jamaica":              "JM",
	"japan":                "JP",
	"jordan":               "JO",
	"kazakhstan":           "KZ",
	"kenya":                "KE",
	"kuwait":               "KW",
	"latvia":               "LV",
	"lebanon":              "LB",
	"lithuania":            "LT",
	"luxembourg":           "LU",
	"malaysia":             "MY",
	"mexico":               "MX",
	"moldova":              "MD",
	"mongolia":             "MN",
	"morocco":              "MA",
	"myanmar":              "MM",
	"nepal":                "NP",
	"netherlands":          "NL",
	"new zealand":          "NZ",
	"nigeria":              "NG",
	"north korea":          "KP",
	"norway":               "NO",
	"pakistan":             "PK",
	"panama":               "PA",
	"paraguay":             "PY",
	"peru":                 "PE",
	"philippines":          "PH",
	"poland":               "PL",
	"portugal":             "PT",
	"puerto rico":          "PR",
	"qatar":                "QA",
	"romania":              "RO",
	"russia":               "RU",
	"saudi arabia":         "SA",
	"scotland":             "GB",
	"serbia":               "RS",
	"singapore":            "SG",
	"slovakia":             "SK",
	"slovenia":             "SI",
	"south africa":         "ZA",
	"south korea":          "KR",
	"spain":                "ES",
	"sri lanka":            "LK",
	"sweden":               "SE",
	"switzerland":          "CH",
	"taiwan":               "TW",
	"thailand":             "TH",
	"tunisia":              "TN",
	"turkey":               "TR",
	"ukraine":              "UA",
	"united arab emirates": "AE",
	"united kingdom":       "GB",
	"united states":        "US",
	"uruguay":              "UY",
	"usa":                  "US",
	"uzbekistan":           "UZ",
	"venezuela":            "VE",
	"vietnam":              "VN",
	"wales":                "GB",
	"uk":                   "GB",
	"u.s.a":                "US",
	"u.s":                  "US",
	"u.k":                  "GB",
	"korea":                "KR",
	"nederland":            "NL",
	"norge":                "NO",
	"sverige":              "SE",
	"osterreich":           "AT",
	"schweiz":              "CH",
	"polska":               "PL",
}

// cityCodes covers major cities that commonly appear alone in profile
// locations. Only consulted when no country term matches.
var cityCodes = map[string]string{
	"amsterdam":      "NL",
	"athens":         "GR",
	"atlanta":        "US",
	"austin":         "US",
	"bangkok":        "TH",
	"barcelona":      "ES",
	"beijing":        "CN",
	"berlin":         "DE",
	"bogota":         "CO",
	"boston":         "US",
	"brussels":       "BE",
	"buenos aires":   "AR",
	"cairo":          "EG",
	"chicago":        "US",
	"copenhagen":     "DK",
	"dubai":          "AE",
	"dublin":         "IE",
	"helsinki":       "FI",
	"istanbul":       "TR",
	"jakarta":        "ID",
	"lagos":          "NG",
	"lisbon":         "PT",
	"london":         "GB",
	"los angeles":    "US",
	"madrid":         "ES",
	"melbourne":      "AU",
	"mexico city":    "MX",
	"miami":          "US",
	"milan":          "IT",
	"montreal":       "CA",
	"moscow":         "RU",
	"mumbai":         "IN",
	"munich":         "DE",
	"new york":       "US",
	"nyc":            "US",
	"oslo":           "NO",
	"paris":          "FR",
	"prague":         "CZ",
	"rio de janeiro": "BR",
	"rome":           "IT",
	"san francisco":  "US",
	"sao paulo":      "BR",
	"seattle":        "US",
	"seoul":          "KR",
	"shanghai":       "CN",
	"stockholm":      "SE",
	"sydney":         "AU",
	"tel aviv":       "IL",
	"tokyo":          "JP",
	"toronto":        "CA",
	"vancouver":      "CA",
	"vienna":         "AT",
	"warsaw":         "PL",
	"zurich":         "CH",
}

// usStateCodes lets "Portland, OR" style locations resolve to the US flag.
var usStateCodes = map[string]struct{}{
	"al": {}, "ak": {}, "az": {}, "ar": {}, "ca": {}, "co": {}, "ct": {},
	"de": {}, "fl": {}, "ga": {}, "hi": {}, "ia": {}, "id": {}, "il": {},
	"in": {}, "ks": {}, "ky": {}, "la": {}, "ma": {}, "md": {}, "me": {},
	"mi": {}, "mn": {}, "mo": {}, "ms": {}, "mt": {}, "nc": {}, "nd": {},
	"ne": {}, "nh": {}, "nj": {}, "nm": {}, "nv": {}, "ny": {}, "oh": {},
	"ok": {}, "or": {}, "pa": {}, "ri": {}, "sc": {}, "sd": {}, "tn": {},
	"tx": {}, "ut": {}, "va": {}, "vt": {}, "wa": {}, "wi": {}, "wv": {},
	"wy": {}, "dc": {},
}

// FlagForLocation resolves a free-form profile location to a flag glyph
// (regional indicator pair). The last part of the location is the most
// specific ("Paris, France"), so matching runs right to left. Bare state
// abbreviations only count when they stand alone as a part ("Portland, OR"),
// never as a word inside one.
func FlagForLocation(location string) (string, bool) {
	parts, words := splitLocationTerms(location)

	for _, terms := range [][]string{parts, words} {
		for i := len(terms) - 1; i >= 0; i-- {
			if code, ok := countryCodes[terms[i]]; ok {
				return flagFromCode(code), true
			}
		}
	}
	for i := len(parts) - 1; i >= 0; i-- {
		if _, ok := usStateCodes[parts[i]]; ok {
			return flagFromCode("US"), true
		}
	}
	for _, terms := range [][]string{parts, words} {
		for i := len(terms) - 1; i >= 0; i-- {
			if code, ok := cityCodes[terms[i]]; ok {
				return flagFromCode(code), true
			}
		}
	}
	return "", false
}

// splitLocationTerms lowercases the location and splits it on commas, slashes
// and pipes into parts, plus the individual words of multi-word parts.
func splitLocationTerms(location string) (parts []string, words []string) {
	lowered := strings.ToLower(strings.TrimSpace(location))
	rawParts := strings.FieldsFunc(lowered, func(r rune) bool {
		return r == ',' || r == '/' || r == '|' || r == '·'
	})

	for _, part := range rawParts {
		part = strings.TrimSpace(strings.Trim(part, "."))
		if part == "" {
			continue
		}
		parts = append(parts, part)

		partWords := strings.Fields(part)
		if len(partWords) > 1 {
			words = append(words, partWords...)
		}
	}
	return parts, words
}

const regionalIndicatorOffset = 0x1F1E6 - 'A'

func flagFromCode(code string) string {
	runes := make([]rune, 0, len(code))
	for _, c := range code {
		runes = append(runes, c+regionalIndicatorOffset)
	}
	return string(runes)
}
