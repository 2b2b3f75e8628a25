// Package knowledge holds the fixed reference corpus used to ground generated
// answers and a small exact nearest-neighbour index over its embeddings.
package knowledge

// Corpus is an immutable, ordered set of reference sentences.
type Corpus struct {
	sentences []string
}

// NewCorpus copies the given sentences into a corpus.
func NewCorpus(sentences ...string) Corpus {
	s := make([]string, len(sentences))
	copy(s, sentences)
	return Corpus{sentences: s}
}

// DefaultCorpus returns the budgeting rules the advisor retrieves from.
func DefaultCorpus() Corpus {
	return NewCorpus(
		"The 50/30/20 rule means 50% of income goes to needs, 30% to wants, and 20% to savings.",
		"The snowball method pays off the smallest debt first. The avalanche method focuses on highest interest first.",
		"Emergency savings should cover 3 to 6 months of expenses.",
		"High credit card debt can affect your credit score and cost more in interest over time.",
	)
}

// Len returns the number of sentences.
func (c Corpus) Len() int { return len(c.sentences) }

// At returns the sentence at position i.
func (c Corpus) At(i int) string { return c.sentences[i] }

// Sentences returns a copy of the corpus contents.
func (c Corpus) Sentences() []string {
	out := make([]string, len(c.sentences))
	copy(out, c.sentences)
	return out
}
