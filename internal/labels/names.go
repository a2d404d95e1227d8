package labels

import "sort"

// nameMapping normalises label class names. Every known name currently maps
// to itself; the table exists so that a relabelled dataset can fold aliases
// without touching the parser.
var nameMapping = map[string]string{
	"car":          "car",
	"pedestrian":   "pedestrian",
	"cyclist":      "cyclist",
	"truck":        "truck",
	"forklift":     "forklift",
	"golf car":     "golf car",
	"motorcyclist": "motorcyclist",
	"bicycle":      "bicycle",
	"motorbike":    "motorbike",
}

// NormalizeClass maps a raw label class to its normalised name.
//
// Known names map through the table. Unknown names are returned unchanged:
// the training pipeline filters classes later, so an unexpected name must
// reach it rather than abort ingestion.
func NormalizeClass(name string) string {
	if mapped, ok := nameMapping[name]; ok {
		return mapped
	}
	return name
}

// IsKnownClass reports whether name appears in the normalisation table.
func IsKnownClass(name string) bool {
	_, ok := nameMapping[name]
	return ok
}

// KnownClasses returns the sorted, de-duplicated normalised class names.
func KnownClasses() []string {
	seen := make(map[string]bool, len(nameMapping))
	out := make([]string, 0, len(nameMapping))
	for _, v := range nameMapping {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
