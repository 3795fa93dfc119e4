package prompts

type Style struct {
	Index  int
	Key    string
	Name   string
	Lead   string
	Traits []string
}

var styles = []Style{
	{
		Index: 0,
		Key:   "clean",
		Name:  "Clean product shot",
		Lead:  "Professional e-commerce product photo of",
		Traits: []string{
			"clean white background",
			"studio lighting",
			"high resolution",
			"minimalist style",
			"commercial photography",
			"product showcase",
			"4K quality",
		},
	},
	{
		Index: 1,
		Key:   "lifestyle",
		Name:  "Lifestyle scene",
		Lead:  "Lifestyle product photo of",
		Traits: []string{
			"natural setting",
			"warm ambient lighting",
			"cozy atmosphere",
			"editorial style",
			"magazine quality",
			"soft shadows",
			"4K",
		},
	},
	{
		Index: 2,
		Key:   "poster",
		Name:  "Promotional poster",
		Lead:  "Bold promotional poster for",
		Traits: []string{
			"vibrant colors",
			"dynamic composition",
			"eye-catching design",
			"modern graphic style",
			"sale banner aesthetic",
			"professional marketing material",
			"4K",
		},
	},
}

func Styles() []Style {
	out := make([]Style, 0, len(styles))
	for _, s := range styles {
		s.Traits = append([]string(nil), s.Traits...)
		out = append(out, s)
	}
	return out
}

// StyleAt wraps out-of-range indexes the same way the image prompt does.
func StyleAt(index int) Style {
	if index < 0 {
		index = -index
	}
	return styles[index%len(styles)]
}
