package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/models"
)

// Selector chooses one book out of the candidates. Returning
// apperr.ErrCancelled means the user dismissed the choice.
type Selector interface {
	Select(ctx context.Context, candidates []models.Book) (models.Book, error)
}

// IndexSelector picks the candidate at a fixed zero-based position.
type IndexSelector int

// Select returns the candidate at the index, or ErrCancelled when out of range.
func (i IndexSelector) Select(_ context.Context, candidates []models.Book) (models.Book, error) {
	if int(i) < 0 || int(i) >= len(candidates) {
		return models.Book{}, fmt.Errorf("candidate %d of %d: %w", int(i), len(candidates), apperr.ErrCancelled)
	}
	return candidates[i], nil
}

// PromptSelector asks on the terminal which candidate to use.
type PromptSelector struct {
	PageSize int
}

// Select shows an interactive list of candidates.
func (p PromptSelector) Select(ctx context.Context, candidates []models.Book) (models.Book, error) {
	if err := ctx.Err(); err != nil {
		return models.Book{}, err
	}
	labels := make([]string, len(candidates))
	for i, b := range candidates {
		labels[i] = fmt.Sprintf("%d. %s", i+1, CandidateLabel(b))
	}
	prompt := &survey.Select{
		Message: "Select a book:",
		Options: labels,
	}
	if p.PageSize > 0 {
		prompt.PageSize = p.PageSize
	}
	var idx int
	if err := survey.AskOne(prompt, &idx); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return models.Book{}, apperr.ErrCancelled
		}
		return models.Book{}, fmt.Errorf("prompt: %w", err)
	}
	return IndexSelector(idx).Select(ctx, candidates)
}

// CandidateLabel is the one-line description of a candidate shown to users:
// title, authors and publisher/year.
func CandidateLabel(b models.Book) string {
	var sb strings.Builder
	sb.WriteString(b.Title)
	if b.Subtitle != "" {
		sb.WriteString(": " + b.Subtitle)
	}
	if len(b.Authors) > 0 {
		sb.WriteString(" by " + strings.Join(b.Authors, ", "))
	}
	var pub []string
	if b.Publisher != "" {
		pub = append(pub, b.Publisher)
	}
	if len(b.PublishedDate) >= 4 {
		pub = append(pub, b.PublishedDate[:4])
	}
	if len(pub) > 0 {
		sb.WriteString(" (" + strings.Join(pub, ", ") + ")")
	}
	return sb.String()
}
