package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

const answerSystemPrompt = "You answer based on given context."

const noRelevantInformation = "Sorry, I couldn't find any relevant information for your question."

const answerPromptTemplate = `You are a helpful assistant that answers questions using only the provided context from the product website.

Your response must follow this strict formatting in **Markdown**:

- Start with a clear, short introductory paragraph.
- Use **numbered or bulleted lists** where relevant.
- Each list item should have:
  - A **bolded title** (e.g., product name, recipe, or concept)
  - A new line with its short description underneath.
- For instructions, nutrition facts, or extra details, use an italic one- or two-word sub-heading like **Tips**, **Instructions**, or **Nutrition**, followed by ':' and the content after that.
- Add blank lines between items and sections for clarity.
- End with a summary or call-to-action if appropriate.
- Do NOT add external or unrelated content.

Context:
%s

Question:
%s

Respond in clean Markdown with clear paragraph spacing.`

func buildContext(matches []domain.Match) string {
	blocks := make([]string, 0, len(matches))
	for i, m := range matches {
		blocks = append(blocks, fmt.Sprintf("Chunk %d:\n%s", i+1, m.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func buildAnswerPrompt(query string, matches []domain.Match) string {
	return fmt.Sprintf(answerPromptTemplate, buildContext(matches), query)
}

func storeAnswerText(product string, radiusKm float64, stores []domain.StoreMatch) string {
	if len(stores) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find any stores carrying %s within %.0f km of you.", product, radiusKm)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the nearest stores that carry %s:\n\n", product)
	for i, s := range stores {
		fmt.Fprintf(&b, "%d. **%s** - %s, %s (%.1f km)", i+1, s.Name, s.Address, s.City, s.DistanceKm)
		if len(s.Products) > 0 {
			fmt.Fprintf(&b, ": %s $%.2f", s.Products[0].Name, s.Products[0].Price)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const askForLocation = "I can help you find a store nearby. Please share your location so I can look for stores close to you."
