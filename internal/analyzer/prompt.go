package analyzer

import (
	"fmt"
	"strings"

	"platepick/internal/model"
)

const systemPrompt = `You are a sophisticated restaurant critic who analyzes reviews to identify and describe the top %d most positively mentioned dishes.
For each dish, create an engaging description based on review patterns and select the most compelling customer quote.
Focus on specific dishes, not general categories like 'food' or 'dessert'.
Keep each description under 20 words and never use generic adjectives like 'delicious', 'tasty' or 'amazing' on their own.`

const userPromptTemplate = `Analyze these restaurant reviews and identify the top %d most recommended dishes, ranked by how often they are positively mentioned.
For each dish, provide:
1. A descriptive name
2. An enticing description that captures the dish's highlights from multiple reviews
3. The best customer quote that showcases the dish's appeal, verbatim from a review
4. How many reviews mention the dish

Reviews to analyze:
%s

Return the analysis in this exact JSON format, rank 1 being the most recommended:
{
  "dishes": [
    {
      "name": "Dish Name",
      "rank": 1,
      "description": "Compelling description of the dish based on review analysis",
      "quote": "Best actual customer quote about this dish",
      "mentions": 3
    }
  ]
}`

// buildReviewBlock concatenates review text the way the prompt expects:
// one "Rating: x/5" + body block per review.
func buildReviewBlock(reviews []model.Review) string {
	blocks := make([]string, 0, len(reviews))
	for _, r := range reviews {
		blocks = append(blocks, fmt.Sprintf("Rating: %d/5\nReview: %s", r.Rating, r.Text))
	}
	return strings.Join(blocks, "\n\n")
}
