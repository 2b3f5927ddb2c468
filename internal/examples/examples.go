// Package examples holds the demonstration text pairs and the sample batch table.
package examples

// Example is a named pair of texts.
type Example struct {
	Name  string `json:"name"`
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

var pairs = []Example{
	{
		Name:  "Identical",
		Text1: "The quick brown fox jumps over the lazy dog.",
		Text2: "The quick brown fox jumps over the lazy dog.",
	},
	{
		Name:  "Paraphrased",
		Text1: "Climate change is one of the most pressing issues of our time, requiring immediate global action.",
		Text2: "Global warming represents a critical challenge that demands urgent worldwide intervention.",
	},
	{
		Name:  "Similar Topic",
		Text1: "Machine learning algorithms can process vast amounts of data to identify patterns and make predictions.",
		Text2: "Artificial intelligence systems use computational methods to analyze information and forecast outcomes.",
	},
	{
		Name:  "Different",
		Text1: "The recipe calls for two cups of flour, one egg, and a pinch of salt.",
		Text2: "The stock market experienced significant volatility due to economic uncertainty.",
	},
}

// Pairs returns the example pairs, from most to least similar.
func Pairs() []Example {
	out := make([]Example, len(pairs))
	copy(out, pairs)
	return out
}

// Lookup returns the example with the given name.
func Lookup(name string) (Example, bool) {
	for _, p := range pairs {
		if p.Name == name {
			return p, true
		}
	}
	return Example{}, false
}

// SampleCSV is a batch table in the expected text1,text2 layout.
const SampleCSV = `text1,text2
"The weather is beautiful today.","Today's weather is lovely."
"I love reading books in my spare time.","Reading novels is my favorite hobby."
"The cat sat on the mat.","A feline rested on the rug."
"Technology is advancing rapidly.","Scientific progress is accelerating."
"The ocean waves crashed against the shore.","Grocery shopping can be time-consuming."
`
