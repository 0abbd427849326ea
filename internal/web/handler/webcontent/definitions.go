package webcontent

// Record-level image form field names. Each maps onto a fixed column of
// the content record; translated text never lives here.
const (
	FieldHeaderImage  = "header_image"
	FieldSecTwoImage  = "sec_two_image"
	FieldSecFourImage = "sec_four_image"
)

// Definition fixes the editable shape of one content slug: which record
// level image fields it carries, which base text keys its translation map
// holds, and which keys are repeatable sections with an image per entry.
type Definition struct {
	ImageFields    []string
	TextFields     []string
	RepeatSections []string
}

// definitions is the slug allow-list. Slugs outside this map do not exist
// as far as the API is concerned.
var definitions = map[string]Definition{
	"home": {
		ImageFields: []string{FieldHeaderImage, FieldSecTwoImage, FieldSecFourImage},
		TextFields: []string{
			"header_title", "header_description",
			"sec_two_title", "sec_two_description",
			"sec_three_title",
			"sec_four_title", "sec_four_description",
		},
		RepeatSections: []string{"client_section"},
	},
	"contact": {
		ImageFields: []string{FieldHeaderImage},
		TextFields: []string{
			"header_title", "header_description",
			"address", "phone", "email",
		},
	},
	"aboutUs": {
		ImageFields: []string{FieldHeaderImage, FieldSecTwoImage},
		TextFields: []string{
			"header_title", "header_description",
			"sec_two_title", "sec_two_description",
		},
	},
	"privacy_policy": {
		ImageFields: []string{FieldHeaderImage},
		TextFields:  []string{"header_title", "content"},
	},
	"terms_conditions": {
		ImageFields: []string{FieldHeaderImage},
		TextFields:  []string{"header_title", "content"},
	},
}

// DefinitionFor returns the content definition of a slug.
func DefinitionFor(slug string) (Definition, bool) {
	def, ok := definitions[slug]
	return def, ok
}
