package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Pool kinds accepted by QuestionFilter.Kind.
const (
	PoolAll      = ""
	PoolYesNo    = "yes_no"
	PoolMultiple = "multiple_choice"
)

// TranslationColumns are the localized columns for one language suffix.
type TranslationColumns struct {
	Prompt  *string
	AnswerA *string
	AnswerB *string
	AnswerC *string
}

// QuestionRow mirrors pytania_egzaminacyjne.
type QuestionRow struct {
	ID           int64
	Licenses     string
	Topic        *string
	Prompt       string
	AnswerA      *string
	AnswerB      *string
	AnswerC      *string
	Correct      string
	Points       *int32
	Media        *string
	Translations map[string]TranslationColumns
}

// QuestionFilter narrows the question pool.
type QuestionFilter struct {
	License string
	Topic   string
	Kind    string
}

// translation suffixes in scan order
var translationSuffixes = []string{"de", "ua", "eng"}

// QuestionRepository reads the curated question bank.
type QuestionRepository struct {
	db DBTX
}

func NewQuestionRepository(db DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// List returns every question matching f ordered by id.
func (r *QuestionRepository) List(ctx context.Context, f QuestionFilter) ([]QuestionRow, error) {
	query, args, err := buildQuestionQuery(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []QuestionRow
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func questionColumns() string {
	cols := []string{
		"id", "kategorie", "kategoria_pytania", "pytanie",
		"odpowiedz_a", "odpowiedz_b", "odpowiedz_c",
		"poprawna_odpowiedz", "punkty", "media",
	}
	for _, sfx := range translationSuffixes {
		cols = append(cols,
			"pytanie_"+sfx, "odp_a_"+sfx, "odp_b_"+sfx, "odp_c_"+sfx)
	}
	return strings.Join(cols, ", ")
}

func buildQuestionQuery(f QuestionFilter) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	if f.License != "" {
		args = append(args, "%"+escapeLike(f.License)+"%")
		where = append(where, fmt.Sprintf("kategorie ILIKE $%d", len(args)))
	}
	if f.Topic != "" {
		args = append(args, f.Topic)
		where = append(where, fmt.Sprintf("kategoria_pytania = $%d", len(args)))
	}
	switch f.Kind {
	case PoolAll:
	case PoolYesNo:
		where = append(where, "odpowiedz_a IS NULL")
	case PoolMultiple:
		where = append(where, "odpowiedz_a IS NOT NULL")
	default:
		return "", nil, fmt.Errorf("unknown question pool %q", f.Kind)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(questionColumns())
	b.WriteString(" FROM pytania_egzaminacyjne")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanQuestion(row pgx.Row) (QuestionRow, error) {
	var q QuestionRow
	tr := make([]TranslationColumns, len(translationSuffixes))
	dest := []any{
		&q.ID, &q.Licenses, &q.Topic, &q.Prompt,
		&q.AnswerA, &q.AnswerB, &q.AnswerC,
		&q.Correct, &q.Points, &q.Media,
	}
	for i := range tr {
		dest = append(dest, &tr[i].Prompt, &tr[i].AnswerA, &tr[i].AnswerB, &tr[i].AnswerC)
	}
	if err := row.Scan(dest...); err != nil {
		return QuestionRow{}, err
	}
	q.Translations = make(map[string]TranslationColumns, len(tr))
	for i, sfx := range translationSuffixes {
		q.Translations[sfx] = tr[i]
	}
	return q, nil
}
