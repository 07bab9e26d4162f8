package selector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
	"github.com/kailas-cloud/tablens/internal/queryengine"
)

// Placeholder is the relation name drafts must query.
const Placeholder = "dataset"

var (
	sqlFenceRe  = regexp.MustCompile("(?is)```sql\\s*\\n?(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
	statementRe = regexp.MustCompile(`(?i)^(SELECT|WITH)\b`)
	writeRe     = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX|REPLACE\s+INTO)\b`)
	tokenRe     = regexp.MustCompile(`(?i)table_name|column_name`)
)

// DraftQuery asks the model for one query over candidate and falls back to
// a rule-based query when the draft is missing or rejected.
func (s *Service) DraftQuery(ctx context.Context, question string, candidate Candidate) (Draft, error) {
	log := s.logger.With(zap.String("dataset_id", candidate.Dataset.ID.String()))

	answer, err := s.completer.Complete(ctx, draftPrompt(candidate), question)
	if err != nil {
		if ctx.Err() != nil {
			return Draft{}, ctx.Err()
		}
		log.Warn("Query drafting failed, using fallback", zap.Error(err))
		return fallbackDraft(question, candidate, "model error: "+err.Error()), nil
	}

	q := Extract(answer)
	if q == "" {
		log.Warn("No query in model answer, using fallback")
		return fallbackDraft(question, candidate, "no query in model answer"), nil
	}
	if err := Validate(q); err != nil {
		log.Warn("Draft rejected, using fallback", zap.String("draft", q), zap.Error(err))
		return fallbackDraft(question, candidate, err.Error()), nil
	}

	log.Info("Query drafted", zap.String("query", q))
	return Draft{Query: q}, nil
}

// Extract takes the ```sql fence, else any ``` fence, else the first line
// starting with SELECT or WITH. Trailing semicolons are dropped.
func Extract(answer string) string {
	var q string
	if m := sqlFenceRe.FindStringSubmatch(answer); m != nil {
		q = m[1]
	} else if m := anyFenceRe.FindStringSubmatch(answer); m != nil {
		q = m[1]
	} else {
		for _, line := range strings.Split(answer, "\n") {
			line = strings.TrimSpace(line)
			if statementRe.MatchString(line) {
				q = line
				break
			}
		}
	}
	q = strings.TrimSpace(q)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	return q
}

// Validate rejects drafts that still carry template tokens or are not a
// single read-only statement.
func Validate(q string) error {
	if tokenRe.MatchString(q) {
		return &domain.DraftRejectedError{Reason: "draft contains a placeholder token"}
	}
	bare := strings.TrimSpace(blankQuoted(q))
	if !statementRe.MatchString(bare) {
		return &domain.DraftRejectedError{Reason: "draft is not a SELECT statement"}
	}
	if strings.Contains(strings.TrimRight(bare, "; \t\n"), ";") {
		return &domain.DraftRejectedError{Reason: "draft contains more than one statement"}
	}
	if m := writeRe.FindString(bare); m != "" {
		return &domain.DraftRejectedError{Reason: fmt.Sprintf("draft contains %s", strings.ToUpper(m))}
	}
	return nil
}

// blankQuoted replaces the contents of string literals and quoted
// identifiers with spaces so keyword checks ignore them.
func blankQuoted(q string) string {
	out := []byte(q)
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
			out[i] = ' '
		}
	}
	return string(out)
}

func draftPrompt(c Candidate) string {
	var b strings.Builder
	b.WriteString("You write one SQLite SELECT statement that answers the user's question.\n\nRules:\n")
	fmt.Fprintf(&b, "1. The table is named %s. Never use placeholders such as table_name.\n", Placeholder)
	b.WriteString("2. Wrap every column name in double quotes.\n")
	b.WriteString("3. Use only the columns listed below.\n")
	b.WriteString("4. Return at most 100 rows (LIMIT 100 or less).\n")
	b.WriteString("5. Write a single read-only statement without comments.\n\n")
	fmt.Fprintf(&b, "Dataset: %s\nColumns:\n", c.Dataset.LogicalName)

	cols := c.Columns
	if len(cols) > draftColumns {
		cols = cols[:draftColumns]
	}
	for _, col := range cols {
		fmt.Fprintf(&b, "- %s (%s)", queryengine.QuoteIdent(col.Name), col.Type)
		if len(col.Samples) > 0 {
			samples := col.Samples
			if len(samples) > draftSamples {
				samples = samples[:draftSamples]
			}
			b.WriteString(" - samples: " + strings.Join(samples, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nUse COUNT(*) for row counts and GROUP BY for aggregates.\n")
	b.WriteString("Return the query as:\n```sql\nSELECT ...\n```")
	return b.String()
}
