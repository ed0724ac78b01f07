package classify

// Type is one recognizable item kind inside the catalog category. The prompt
// is embedded once and compared against query images; the keywords drive the
// soft metadata filter during ranking.
type Type struct {
	Name     string
	Prompt   string
	Keywords []string
}

// Vocabulary is an ordered list of types. Order matters: score ties resolve
// to the earliest entry so classification stays deterministic.
type Vocabulary []Type

// Names returns the type names in vocabulary order.
func (v Vocabulary) Names() []string {
	names := make([]string, len(v))
	for i := range v {
		names[i] = v[i].Name
	}
	return names
}

// Prompts returns the embedding prompts in vocabulary order.
func (v Vocabulary) Prompts() []string {
	prompts := make([]string, len(v))
	for i := range v {
		prompts[i] = v[i].Prompt
	}
	return prompts
}

// Lookup finds a type by name.
func (v Vocabulary) Lookup(name string) (Type, bool) {
	for i := range v {
		if v[i].Name == name {
			return v[i], true
		}
	}
	return Type{}, false
}

// DefaultVocabulary covers the furniture catalog this service ships with.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		{
			Name:     "bed",
			Prompt:   "a photo of a bed",
			Keywords: []string{"bed", "mattress", "bedframe", "headboard"},
		},
		{
			Name:     "chair",
			Prompt:   "a photo of a chair",
			Keywords: []string{"chair", "seat", "stool", "armchair", "recliner"},
		},
		{
			Name:     "sofa",
			Prompt:   "a photo of a sofa",
			Keywords: []string{"sofa", "couch", "loveseat", "settee", "sectional"},
		},
		{
			Name:     "table",
			Prompt:   "a photo of a table",
			Keywords: []string{"table", "desk", "coffee table", "side table"},
		},
		{
			Name:     "bookshelf",
			Prompt:   "a photo of a bookshelf",
			Keywords: []string{"bookshelf", "shelf", "bookcase", "shelving"},
		},
		{
			Name:     "wardrobe",
			Prompt:   "a photo of a wardrobe",
			Keywords: []string{"wardrobe", "closet", "armoire", "cabinet", "dresser"},
		},
		{
			Name:     "dining",
			Prompt:   "a photo of a dining set",
			Keywords: []string{"dining", "dining table", "dining chair", "dinner"},
		},
		{
			Name:     "study",
			Prompt:   "a photo of a study desk",
			Keywords: []string{"study", "desk", "workstation", "office"},
		},
	}
}

// DefaultGatePrompts describe the catalog category and the most common
// off-category confusions seen in production traffic.
func DefaultGatePrompts() (positive, negative []string) {
	positive = []string{
		"a photo of furniture",
		"a photo of a piece of furniture",
		"a photo of home furniture",
		"a photo of indoor furniture",
	}
	negative = []string{
		"a photo of raw wood",
		"a photo of timber",
		"a photo of construction materials",
		"a photo of lumber",
		"a photo of wooden planks",
		"a photo of building materials",
		"a photo of wood panels",
	}
	return positive, negative
}
