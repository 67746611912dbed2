package quiz

// generation limits
const (
	minTextLength  = 100
	minSentences   = 3
	maxSentences   = 50
	maxKeywords    = 20
	mcqSearchDepth = 20 // sentences scanned for definitional patterns
	numSearchDepth = 30 // sentences scanned for numeric patterns
)

// sentence length bounds
const (
	minSentenceLength   = 20
	maxSentenceLength   = 300
	minTFSentenceLength = 30
	maxTFSentenceLength = 200
)

// static stopword list, kept small on purpose: keyword extraction only needs
// the common glue words out of the way
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "by": true, "for": true, "from": true,
	"has": true, "he": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "that": true, "the": true, "to": true,
	"was": true, "will": true, "with": true, "would": true, "have": true,
	"had": true, "this": true, "they": true, "we": true, "you": true,
	"your": true, "but": true, "can": true, "could": true, "do": true,
	"does": true, "did": true, "not": true, "no": true, "or": true,
	"there": true, "their": true, "them": true, "then": true, "than": true,
	"what": true, "when": true, "where": true, "who": true, "why": true,
	"how": true, "about": true, "after": true, "all": true, "also": true,
	"any": true, "because": true, "before": true, "being": true,
	"between": true, "both": true, "each": true, "few": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "only": true,
	"own": true, "same": true, "so": true, "through": true, "very": true,
	"way": true, "well": true,
}

// generic fallback distractors used when the keyword pool runs dry
var genericDistractors = []string{
	"Technology", "Process", "System", "Method",
	"Approach", "Solution", "Strategy", "Framework",
}
