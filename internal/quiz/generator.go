package quiz

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrInsufficientContent marks text too short or too fragmented to mine
// questions from. It never escapes Generate; the fallback quiz covers it.
var ErrInsufficientContent = errors.New("not enough content to generate quiz questions")

var (
	definitionalRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:is|are|refers to|means)\s+(.+)$`)
	numericRe      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(%|percent|dollars?|years?|months?|days?|people|users|companies)`)
	firstNumberRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// auxiliary verbs the negation ladder can insert "not" after
var auxVerbs = map[string]bool{
	"has": true, "have": true, "was": true, "were": true, "does": true, "did": true,
}

// Generator synthesizes multiple-choice and true/false questions from plain
// text using keyword and pattern heuristics. Generation is deterministic for
// a fixed input and never fails: any internal error or panic degrades to a
// single-question fallback quiz.
type Generator struct {
	log zerolog.Logger
}

// NewGenerator creates a quiz generator.
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{log: log}
}

// Generate produces up to numMCQ multiple-choice and numTF true/false
// questions. It always returns a usable quiz.
func (g *Generator) Generate(text string, numMCQ, numTF int) (quiz Quiz) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Msg("quiz generation panicked, using fallback")
			quiz = fallbackQuiz()
		}
	}()

	q, err := g.generate(text, numMCQ, numTF)
	if err != nil {
		g.log.Warn().Err(err).Msg("quiz generation failed, using fallback")
		return fallbackQuiz()
	}
	return q
}

func (g *Generator) generate(text string, numMCQ, numTF int) (Quiz, error) {
	numMCQ = max(numMCQ, 0)
	numTF = max(numTF, 0)
	if len(text) < minTextLength {
		return Quiz{}, fmt.Errorf("%w: text shorter than %d characters", ErrInsufficientContent, minTextLength)
	}
	sentences := extractSentences(text)
	if len(sentences) < minSentences {
		return Quiz{}, fmt.Errorf("%w: only %d usable sentences", ErrInsufficientContent, len(sentences))
	}

	keywords := extractKeywords(text, maxKeywords)

	questions := make([]Question, 0, numMCQ+numTF)
	questions = append(questions, g.generateMCQ(sentences, keywords, numMCQ)...)
	questions = append(questions, g.generateTF(sentences, numTF)...)

	return Quiz{Questions: questions}, nil
}

// generateMCQ fills numQuestions slots in priority order: definitional
// pattern matches first, then numeric fill-in-the-blank, then keyword
// relevance fillers.
func (g *Generator) generateMCQ(sentences, keywords []string, numQuestions int) []Question {
	var questions []Question

	// definitional: "X is/are/refers to/means Y"
	for _, sentence := range head(sentences, mcqSearchDepth) {
		if len(questions) >= numQuestions {
			break
		}
		m := definitionalRe.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		concept := strings.TrimSpace(m[1])
		definition := strings.TrimSpace(m[2])
		if len(concept) <= 3 || len(concept) >= 50 || len(definition) <= 10 {
			continue
		}

		options := append([]string{concept}, generateDistractors(concept, keywords, 3)...)
		questions = append(questions, newMultipleChoice(
			fmt.Sprintf("What is %s?", definition),
			options,
			fmt.Sprintf("Based on the content: %s", truncate(sentence, 100)),
		))
	}

	// numeric: blank out the first number with a unit word
	for _, sentence := range head(sentences, numSearchDepth) {
		if len(questions) >= numQuestions {
			break
		}
		m := numericRe.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		value := m[1]
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}

		// blank out only the first number to form the stem
		loc := firstNumberRe.FindStringIndex(sentence)
		stem := sentence[:loc[0]] + "___" + sentence[loc[1]:]
		stem = truncate(stem, 100) + "?"

		options := []string{
			value,
			strconv.Itoa(int(num * 0.8)),
			strconv.Itoa(int(num * 1.2)),
			strconv.Itoa(int(num * 1.5)),
		}
		questions = append(questions, newMultipleChoice(
			stem,
			options,
			fmt.Sprintf("From the content: %s", truncate(sentence, 100)),
		))
	}

	// keyword fillers for the remaining slots
	for len(questions) < numQuestions && len(keywords) > 0 {
		keyword := keywords[len(questions)%len(keywords)]

		var keywordSentence string
		for _, sentence := range sentences {
			if strings.Contains(strings.ToLower(sentence), strings.ToLower(keyword)) {
				keywordSentence = sentence
				break
			}
		}
		if keywordSentence == "" {
			break
		}

		distractors := generateDistractors(keyword, keywords, 3)
		options := append([]string{titleCase(keyword)}, distractors...)
		questions = append(questions, newMultipleChoice(
			fmt.Sprintf("Which term is most relevant to: '%s'?", truncate(keywordSentence, 80)),
			options,
			"Based on context analysis",
		))
	}

	return questions
}

// generateTF walks candidate sentences and alternates between unmodified true
// statements and negated false ones.
func (g *Generator) generateTF(sentences []string, numQuestions int) []Question {
	var questions []Question

	for _, sentence := range head(sentences, numQuestions*3) {
		if len(questions) >= numQuestions {
			break
		}
		if len(sentence) < minTFSentenceLength || len(sentence) > maxTFSentenceLength {
			continue
		}

		if len(questions)%2 == 0 {
			questions = append(questions, newTrueFalse(
				sentence, true, "This statement is directly from the content"))
			continue
		}
		questions = append(questions, newTrueFalse(
			negate(sentence), false, "This statement has been modified from the original content"))
	}

	return questions
}

// negate builds a false version of a statement: flip a common copula or
// modal, else insert "not" after the first auxiliary verb, else wrap the
// whole sentence.
func negate(sentence string) string {
	replacements := [][2]string{
		{" is ", " is not "},
		{" are ", " are not "},
		{" can ", " cannot "},
		{" will ", " will not "},
	}
	for _, r := range replacements {
		if strings.Contains(sentence, r[0]) {
			return strings.Replace(sentence, r[0], r[1], 1)
		}
	}

	words := strings.Fields(sentence)
	for i, word := range words {
		if auxVerbs[strings.ToLower(word)] {
			negated := make([]string, 0, len(words)+1)
			negated = append(negated, words[:i+1]...)
			negated = append(negated, "not")
			negated = append(negated, words[i+1:]...)
			return strings.Join(negated, " ")
		}
	}

	return "It is not true that " + strings.ToLower(sentence)
}

// generateDistractors returns exactly count plausible wrong answers: unused
// keywords first, the generic topic list next, synthesized placeholders as a
// last resort. Duplicates of the correct answer or of each other are skipped
// case-insensitively.
func generateDistractors(correct string, keywords []string, count int) []string {
	distractors := make([]string, 0, count)
	used := map[string]bool{strings.ToLower(correct): true}

	add := func(candidate string) {
		if len(distractors) >= count {
			return
		}
		lower := strings.ToLower(candidate)
		if used[lower] {
			return
		}
		used[lower] = true
		distractors = append(distractors, candidate)
	}

	for _, kw := range keywords {
		add(titleCase(kw))
	}
	for _, generic := range genericDistractors {
		add(generic)
	}
	for len(distractors) < count {
		distractors = append(distractors, fmt.Sprintf("Option %d", len(distractors)+1))
	}

	return distractors
}

// fallbackQuiz is the guaranteed-valid single question returned when
// generation cannot produce anything from the input.
func fallbackQuiz() Quiz {
	return Quiz{Questions: []Question{
		newMultipleChoice(
			"What is the main topic of this content?",
			[]string{"Technology", "Education", "Science", "General Knowledge"},
			"Based on the imported content",
		),
	}}
}

// head returns the first n elements without copying
func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
