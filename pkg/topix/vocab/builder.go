package vocab

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Triple is one (subject, relation, object) statement of a thesaurus.
// Literal objects may carry a language tag as "text@lang".
type Triple struct {
	Subject  string
	Relation Relation
	Object   string
}

// Label is one row of the id -> label table.
type Label struct {
	ID    string
	Label string
}

// Use maps a non-descriptor id to its descriptor id.
type Use struct {
	NonDescriptor string
	Descriptor    string
}

// Links lists the ids related to one concept.
type Links struct {
	ID      string
	Related []string
}

// Tables is the flat-table form of a thesaurus.
type Tables struct {
	Labels []Label
	Use    []Use
	Rel    []Links
}

// BuildOptions configures a Builder.
type BuildOptions struct {
	// Name identifies the vocabulary ("agrovoc", "mesh", "lcsh", ...).
	Name string
	// Language keeps only labels tagged with this language (untagged labels
	// are always kept). Empty keeps everything.
	Language   string
	Normalizer *Normalizer
	Logger     *zap.Logger
}

// Builder accumulates a vocabulary in a single pass. It is not safe for
// concurrent use; call Build once all input has been added.
type Builder struct {
	opts   BuildOptions
	policy Policy
	store  *Store
	count  int
	log    *zap.Logger
}

// NewBuilder creates a builder. A nil normalizer uses the policy of
// opts.Name with no stemming and no stopwords.
func NewBuilder(opts BuildOptions) *Builder {
	if opts.Normalizer == nil {
		opts.Normalizer = NewNormalizer(nil, nil, PolicyFor(opts.Name))
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		opts:   opts,
		policy: opts.Normalizer.Policy,
		store:  newStore(opts.Name, opts.Normalizer),
		log:    log,
	}
}

// AddTriple records one statement.
func (b *Builder) AddTriple(t Triple) {
	switch {
	case t.Relation == RelPrefLabel:
		label, ok := b.languageFilter(t.Object)
		if !ok {
			return
		}
		b.AddDescriptor(t.Subject, label)

	case t.Relation.isLabel():
		label, ok := b.languageFilter(t.Object)
		if !ok {
			return
		}
		b.addAlias(t.Subject, label)

	case t.Relation.isEdge():
		appendUnique(b.store.related, t.Subject, t.Object)
		switch t.Relation {
		case RelRelated:
			appendUnique(b.store.related, t.Object, t.Subject)
		case RelBroader:
			appendUnique(b.store.broader, t.Subject, t.Object)
			appendUnique(b.store.narrower, t.Object, t.Subject)
		case RelNarrower:
			appendUnique(b.store.narrower, t.Subject, t.Object)
			appendUnique(b.store.broader, t.Object, t.Subject)
		}
	}
}

// AddDescriptor indexes label as a sense of id and stores it as the
// label of id. Labels that normalize to nothing are ignored.
func (b *Builder) AddDescriptor(id, label string) {
	key := b.opts.Normalizer.Normalize(label)
	if key == "" {
		return
	}
	appendUnique(b.store.senses, key, id)
	b.store.terms[id] = label
}

// AddNonDescriptor maps a non-descriptor id to its descriptor.
func (b *Builder) AddNonDescriptor(nonDescriptor, descriptor string) {
	b.store.nonDescriptors[nonDescriptor] = descriptor
}

// AddRelated links id to each of related, in that direction only.
func (b *Builder) AddRelated(id string, related ...string) {
	for _, r := range related {
		if r != "" {
			appendUnique(b.store.related, id, r)
		}
	}
}

// addAlias indexes an alternative label under a synthesized
// non-descriptor id ("d_0", "d_1", ...).
func (b *Builder) addAlias(descriptor, label string) {
	if b.policy.SkipParenthesizedAliases && strings.ContainsRune(label, '(') {
		return
	}
	nd := "d_" + strconv.Itoa(b.count)
	b.count++

	if key := b.opts.Normalizer.Normalize(label); key != "" {
		appendUnique(b.store.senses, key, nd)
	}
	b.store.terms[nd] = label
	b.store.nonDescriptors[nd] = descriptor
}

// languageFilter strips a language tag and reports whether the label
// should be kept.
func (b *Builder) languageFilter(value string) (string, bool) {
	text, lang := splitLanguage(value)
	if lang == "" || b.opts.Language == "" {
		return text, true
	}
	return text, languageMatches(lang, b.opts.Language)
}

// Build finalizes the store. The builder must not be used afterwards.
func (b *Builder) Build() *Store {
	s := b.store
	s.finish()
	b.store = nil

	st := s.Stats()
	b.log.Info("vocabulary built",
		zap.String("name", s.name),
		zap.Int("terms", st.Descriptors),
		zap.Int("non_descriptors", st.NonDescriptors),
		zap.Int("with_related", st.WithRelated),
		zap.Int("keys", st.Keys))
	return s
}

// BuildFromTriples builds a store from thesaurus statements.
func BuildFromTriples(triples []Triple, opts BuildOptions) *Store {
	b := NewBuilder(opts)
	for _, t := range triples {
		b.AddTriple(t)
	}
	return b.Build()
}

// BuildFromTables builds a store from the flat-table form.
func BuildFromTables(t Tables, opts BuildOptions) *Store {
	b := NewBuilder(opts)
	for _, l := range t.Labels {
		b.AddDescriptor(l.ID, l.Label)
	}
	for _, u := range t.Use {
		b.AddNonDescriptor(u.NonDescriptor, u.Descriptor)
	}
	for _, r := range t.Rel {
		b.AddRelated(r.ID, r.Related...)
	}
	return b.Build()
}

// splitLanguage separates "text@lang" into its parts. A trailing "@..."
// that does not look like a language tag is kept as text.
func splitLanguage(value string) (text, lang string) {
	i := strings.LastIndexByte(value, '@')
	if i <= 0 || i == len(value)-1 {
		return value, ""
	}
	tag := value[i+1:]
	for _, c := range tag {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return value, ""
		}
	}
	return value[:i], tag
}

// languageMatches compares tags case-insensitively, accepting a region
// variant of the wanted language ("en-GB" matches "en").
func languageMatches(tag, want string) bool {
	tag, want = strings.ToLower(tag), strings.ToLower(want)
	if tag == want {
		return true
	}
	primary, _, _ := strings.Cut(tag, "-")
	return primary == want
}
