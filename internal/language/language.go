package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "español"}},
	{"fr", "fra", "fre", "French", []string{"french", "français"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"bn", "ben", "", "Bengali", []string{"bengali"}},
	{"pa", "pan", "", "Punjabi", []string{"punjabi"}},
	{"jv", "jav", "", "Javanese", []string{"javanese"}},
	{"vi", "vie", "", "Vietnamese", []string{"vietnamese"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"no", "nor", "nob", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"cs", "ces", "cze", "Czech", []string{"czech"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
	{"el", "ell", "gre", "Greek", []string{"greek"}},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}},
	{"id", "ind", "", "Indonesian", []string{"indonesian"}},
	{"ms", "msa", "may", "Malay", []string{"malay"}},
	{"th", "tha", "", "Thai", []string{"thai"}},
	{"tl", "tgl", "", "Tagalog", []string{"tagalog", "filipino"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry

	titleCaser = cases.Title(xlanguage.English)
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

// normalizeCode lower-cases the input and strips region suffixes such as
// "en-US" or "pt_BR".
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	return code
}

func lookup(code string) *entry {
	code = normalizeCode(code)
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if code = normalizeCode(code); len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns a human-readable language name for a language code or
// word. Codes missing from the built-in table are resolved through the CLDR
// names in x/text; anything else is returned title-cased. Empty input yields "".
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if tag, err := xlanguage.Parse(normalizeCode(trimmed)); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return titleCaser.String(strings.ToLower(trimmed))
}
