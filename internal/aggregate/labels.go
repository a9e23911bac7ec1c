package aggregate

// LabelOptions controls category label generation.
type LabelOptions struct {
	// SubtypePairs also emits subtype_i + "_" + subtype_j for every
	// unordered pair of subtypes.
	SubtypePairs bool
}

// CategoryLabels expands a product's type and subtypes into the category
// keys it is reported under: the type, every subtype, and every
// type_subtype combination. Labels are unique and returned in generation
// order. Empty strings are skipped.
func CategoryLabels(productType string, subtypes []string, opts LabelOptions) []string {
	seen := make(map[string]struct{}, 1+2*len(subtypes))
	out := make([]string, 0, 1+2*len(subtypes))
	add := func(label string) {
		if label == "" {
			return
		}
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	add(productType)
	for _, st := range subtypes {
		add(st)
	}
	if productType != "" {
		for _, st := range subtypes {
			if st != "" {
				add(productType + "_" + st)
			}
		}
	}
	if opts.SubtypePairs {
		for i := 0; i < len(subtypes); i++ {
			for j := i + 1; j < len(subtypes); j++ {
				if subtypes[i] != "" && subtypes[j] != "" && subtypes[i] != subtypes[j] {
					add(subtypes[i] + "_" + subtypes[j])
				}
			}
		}
	}
	return out
}
