package manifest

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language tags used by the multinet model naming convention. These are the
// model-family tags ("cn", "en"), not BCP 47 codes.
const (
	LangChinese = "cn"
	LangEnglish = "en"
)

var languageIndicators = map[string][]string{
	LangChinese: {"_cn", "cn_"},
	LangEnglish: {"_en", "en_"},
}

// IsMultinet reports whether name follows the multi-command recognition model
// naming convention ("mn" family prefix followed by a version digit).
func IsMultinet(name string) bool {
	if !strings.HasPrefix(name, "mn") {
		return false
	}
	rest := name[len("mn"):]
	return len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9'
}

// DetectLanguages scans multinet model names for language markers and returns
// the sorted set of detected tags. Multinet models without any marker default
// to Chinese; names that are not multinet models contribute nothing. An empty
// result means no recognized command models were supplied.
func DetectLanguages(modelNames []string) []string {
	sawMultinet := false
	found := make(map[string]struct{})
	for _, name := range modelNames {
		if !IsMultinet(name) {
			continue
		}
		sawMultinet = true
		for lang, indicators := range languageIndicators {
			for _, indicator := range indicators {
				if strings.Contains(name, indicator) {
					found[lang] = struct{}{}
					break
				}
			}
		}
	}
	if !sawMultinet {
		return nil
	}
	if len(found) == 0 {
		return []string{LangChinese}
	}
	languages := make([]string, 0, len(found))
	for lang := range found {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// bcp47 maps model-family language tags onto BCP 47 codes.
var bcp47 = map[string]string{
	LangChinese: "zh",
	LangEnglish: "en",
}

// DisplayName renders a human-readable name for a model-family language tag,
// e.g. "Chinese" for "cn". Unknown tags are returned unchanged.
func DisplayName(tag string) string {
	code, ok := bcp47[tag]
	if !ok {
		code = tag
	}
	parsed, err := language.Parse(code)
	if err != nil {
		return tag
	}
	name := display.English.Languages().Name(parsed)
	if name == "" {
		return tag
	}
	return name
}
