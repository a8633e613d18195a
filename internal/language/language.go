package language

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
)

type entry struct {
	code2  string         // ISO 639-1 (2-letter)
	code3  string         // ISO 639-2 primary (3-letter)
	alt3   string         // ISO 639-2 alternate (e.g. "fre" vs "fra")
	lingua lingua.Language // detector language
}

var languages = []entry{
	{"en", "eng", "", lingua.English},
	{"es", "spa", "", lingua.Spanish},
	{"fr", "fra", "fre", lingua.French},
	{"de", "deu", "ger", lingua.German},
	{"it", "ita", "", lingua.Italian},
	{"pt", "por", "", lingua.Portuguese},
	{"ja", "jpn", "", lingua.Japanese},
	{"ko", "kor", "", lingua.Korean},
	{"zh", "zho", "chi", lingua.Chinese},
	{"ru", "rus", "", lingua.Russian},
	{"ar", "ara", "", lingua.Arabic},
	{"hi", "hin", "", lingua.Hindi},
	{"nl", "nld", "dut", lingua.Dutch},
	{"pl", "pol", "", lingua.Polish},
	{"sv", "swe", "", lingua.Swedish},
	{"da", "dan", "", lingua.Danish},
	{"fi", "fin", "", lingua.Finnish},
}

// Index maps built at init time.
var (
	byCode2  map[string]*entry
	byCode3  map[string]*entry
	byWord   map[string]*entry
	byLingua map[lingua.Language]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	byLingua = make(map[lingua.Language]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		byWord[strings.ToLower(e.lingua.String())] = e
		byLingua[e.lingua] = e
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
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
	if tag, err := xlanguage.Parse(code); err == nil {
		base, _ := tag.Base()
		if e, ok := byCode2[base.String()]; ok {
			return e
		}
	}
	return nil
}

// ToISO2 converts any recognized language code, BCP 47 tag, or word to
// ISO 639-1 (2-letter). Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized 2-letter codes, passes through 3-letter codes.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return displayName(e.lingua)
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

func displayName(lang lingua.Language) string {
	// A Caser holds state, so each call gets its own.
	return cases.Title(xlanguage.English).String(strings.ToLower(lang.String()))
}

// Detection is the outcome of language detection on a transcript.
type Detection struct {
	Code       string  // ISO 639-1
	Name       string  // display name
	Confidence float64 // 0..1
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		supported := make([]lingua.Language, 0, len(languages))
		for _, e := range languages {
			supported = append(supported, e.lingua)
		}
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			Build()
	})
	return detector
}

// Detect identifies the language of text among the supported languages.
// It reports false when text is blank or no language can be determined.
func Detect(text string) (Detection, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Detection{}, false
	}
	d := languageDetector()
	lang, ok := d.DetectLanguageOf(text)
	if !ok {
		return Detection{}, false
	}
	e, known := byLingua[lang]
	if !known {
		return Detection{}, false
	}
	return Detection{
		Code:       e.code2,
		Name:       displayName(lang),
		Confidence: d.ComputeLanguageConfidence(text, lang),
	}, true
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
