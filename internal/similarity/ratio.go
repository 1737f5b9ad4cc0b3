// Package similarity scores free-text labels against each other and proposes
// merge candidates. It is an exploratory aid for curating the issue keyword
// table; the cleaning pipeline never calls it.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// TokenSortRatio scores two strings from 0 to 100 after sorting their tokens,
// so word order does not affect the result.
func TokenSortRatio(a, b string) int {
	pa, pb := sortedTokens(a), sortedTokens(b)
	if pa == "" || pb == "" {
		return 0
	}
	return Ratio(pa, pb)
}

// Ratio is the indel similarity of two strings: twice the longest common
// subsequence over the combined length. Halves round to even.
func Ratio(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}

// sortedTokens lower-cases s, turns anything that is not a letter or digit into
// a separator, and joins the sorted tokens with single spaces.
func sortedTokens(s string) string {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
