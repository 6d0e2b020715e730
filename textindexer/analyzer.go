package textindexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/analysis"
	"github.com/blevesearch/bleve/analysis/lang/en"
	bleveunicode "github.com/blevesearch/bleve/analysis/tokenizer/unicode"
	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball"
)

// Supported stemmer names.
const (
	StemmerPorter   = "porter"
	StemmerSnowball = "snowball"
)

// Stemmer reduces a lower-case word to its stem.
type Stemmer interface {
	Stem(word string) string
}

// PorterStemmer stems words using Porter's original algorithm.
type PorterStemmer struct{}

// Stem returns the Porter stem of word.
func (PorterStemmer) Stem(word string) string {
	return porterstemmer.StemString(word)
}

// SnowballStemmer stems words using the English snowball (Porter2) algorithm.
type SnowballStemmer struct{}

// Stem returns the snowball stem of word. Words the stemmer rejects are
// returned unchanged.
func (SnowballStemmer) Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}

	return stemmed
}

// NewStemmer returns the stemmer registered under name.
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case "", StemmerPorter:
		return PorterStemmer{}, nil
	case StemmerSnowball:
		return SnowballStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

// Analyzer turns free text into stems. The same analyzer must be used for
// indexing pages and for parsing queries so that both sides agree on terms.
type Analyzer struct {
	tokenizer *bleveunicode.UnicodeTokenizer
	stopWords analysis.TokenMap
	stemmer   Stemmer
}

// NewAnalyzer returns an Analyzer that removes English stop words and stems
// the remaining tokens with stemmer. A nil stemmer selects PorterStemmer.
func NewAnalyzer(stemmer Stemmer) (*Analyzer, error) {
	if stemmer == nil {
		stemmer = PorterStemmer{}
	}

	stopWords := analysis.NewTokenMap()
	if err := stopWords.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, fmt.Errorf("load stop words: %w", err)
	}

	return &Analyzer{
		tokenizer: bleveunicode.NewUnicodeTokenizer(),
		stopWords: stopWords,
		stemmer:   stemmer,
	}, nil
}

// Terms returns the occurrence count of every stem found in text.
func (a *Analyzer) Terms(text string) map[string]int {
	terms := make(map[string]int)
	a.walk(text, func(stem string) {
		terms[stem]++
	})

	return terms
}

// Stems returns the distinct stems found in text in order of first
// appearance.
func (a *Analyzer) Stems(text string) []string {
	var (
		stems []string
		seen  = make(map[string]struct{})
	)
	a.walk(text, func(stem string) {
		if _, exists := seen[stem]; exists {
			return
		}
		seen[stem] = struct{}{}
		stems = append(stems, stem)
	})

	return stems
}

// walk lower-cases and tokenizes text, drops non-alphabetic tokens and stop
// words and invokes fn with the stem of every remaining token.
func (a *Analyzer) walk(text string, fn func(stem string)) {
	for _, token := range a.tokenizer.Tokenize([]byte(strings.ToLower(text))) {
		word := string(token.Term)
		if !isAlpha(word) || a.stopWords[word] {
			continue
		}

		if stem := a.stemmer.Stem(word); stem != "" {
			fn(stem)
		}
	}
}

func isAlpha(word string) bool {
	if word == "" {
		return false
	}

	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}

	return true
}
