package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	"github.com/kailas-cloud/tablens/internal/queryengine"
)

const (
	projectionColumns = 5
	projectionLimit   = 10
	aggregateLimit    = 100
)

// Question cues, English and Chinese.
var (
	countCues    = cues("how many", "count", "number of", "多少", "几个", "几条", "数量", "行数", "总数", "计数")
	averageCues  = cues("average", "avg", "mean", "平均")
	aggregateCue = cues("total", "sum", "by", "per", "each", "总", "求和", "合计", "每", "各")
	latestCues   = cues("latest", "recent", "newest", "last", "最新", "最近")
	earliestCues = cues("earliest", "oldest", "first", "最早")
	highestCues  = cues("highest", "largest", "biggest", "top", "most", "max", "最高", "最大", "最多")
	lowestCues   = cues("lowest", "smallest", "least", "bottom", "min", "最低", "最小", "最少")
)

// cues compiles words into one matcher. ASCII words match on word
// boundaries; other scripts match as substrings.
func cues(words ...string) *regexp.Regexp {
	parts := make([]string, len(words))
	for i, w := range words {
		if isASCII(w) {
			parts[i] = `\b` + regexp.QuoteMeta(w) + `\b`
		} else {
			parts[i] = regexp.QuoteMeta(w)
		}
	}
	return regexp.MustCompile("(?i)" + strings.Join(parts, "|"))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func hasCue(q string, re *regexp.Regexp) bool { return re.MatchString(q) }

// Fallback builds a rule-based query over the placeholder relation.
func Fallback(question string, cols []column.Column) string {
	q := strings.ToLower(question)
	usable := usableColumns(cols)

	if hasCue(q, countCues) && !hasCue(q, averageCues) {
		return fmt.Sprintf(`SELECT COUNT(*) AS "row_count" FROM %s`, Placeholder)
	}

	ranked := rankColumns(q, usable)
	num, hasNum := first(ranked, func(c column.Column) bool { return c.Type.IsNumeric() })
	cat, hasCat := first(ranked, func(c column.Column) bool { return c.Type == column.TypeString || c.Type == column.TypeBool })

	if hasNum && hasCat && (hasCue(q, aggregateCue) || hasCue(q, averageCues)) {
		fn, prefix := "SUM", "total_"
		if hasCue(q, averageCues) {
			fn, prefix = "AVG", "avg_"
		}
		alias := queryengine.QuoteIdent(prefix + num.Name)
		catID := queryengine.QuoteIdent(cat.Name)
		return fmt.Sprintf("SELECT %s, %s(%s) AS %s FROM %s GROUP BY %s ORDER BY %s DESC LIMIT %d",
			catID, fn, queryengine.QuoteIdent(num.Name), alias, Placeholder, catID, alias, aggregateLimit)
	}

	if len(ranked) == 0 {
		return fmt.Sprintf("SELECT * FROM %s LIMIT %d", Placeholder, projectionLimit)
	}

	proj := ranked
	if len(proj) > projectionColumns {
		proj = proj[:projectionColumns]
	}
	ids := make([]string, len(proj))
	for i, c := range proj {
		ids[i] = queryengine.QuoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(ids, ", "), Placeholder)

	date, hasDate := first(usable, func(c column.Column) bool { return c.Type == column.TypeDate })
	firstNum, hasFirstNum := first(usable, func(c column.Column) bool { return c.Type.IsNumeric() })
	switch {
	case hasDate && hasCue(q, latestCues):
		query += " ORDER BY " + queryengine.QuoteIdent(date.Name) + " DESC"
	case hasDate && hasCue(q, earliestCues):
		query += " ORDER BY " + queryengine.QuoteIdent(date.Name) + " ASC"
	case hasFirstNum && hasCue(q, highestCues):
		query += " ORDER BY " + queryengine.QuoteIdent(firstNum.Name) + " DESC"
	case hasFirstNum && hasCue(q, lowestCues):
		query += " ORDER BY " + queryengine.QuoteIdent(firstNum.Name) + " ASC"
	}
	return fmt.Sprintf("%s LIMIT %d", query, projectionLimit)
}

func fallbackDraft(question string, c Candidate, reason string) Draft {
	return Draft{Query: Fallback(question, c.Columns), Fallback: true, Reason: reason}
}

// usableColumns drops columns whose names carry template tokens.
func usableColumns(cols []column.Column) []column.Column {
	out := make([]column.Column, 0, len(cols))
	for _, c := range cols {
		if tokenRe.MatchString(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rankColumns moves columns mentioned in the question to the front and
// keeps the original order otherwise.
func rankColumns(q string, cols []column.Column) []column.Column {
	mentioned := make([]column.Column, 0, len(cols))
	rest := make([]column.Column, 0, len(cols))
	for _, c := range cols {
		if mentions(q, c) {
			mentioned = append(mentioned, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(mentioned, rest...)
}

func mentions(q string, c column.Column) bool {
	for _, s := range []string{c.Name, strings.ReplaceAll(c.Name, "_", " "), c.Label} {
		s = strings.ToLower(strings.TrimSpace(s))
		if len(s) > 1 && strings.Contains(q, s) {
			return true
		}
	}
	return false
}

func first(cols []column.Column, pred func(column.Column) bool) (column.Column, bool) {
	for _, c := range cols {
		if pred(c) {
			return c, true
		}
	}
	return column.Column{}, false
}
