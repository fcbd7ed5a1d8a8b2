package ollama

const maxPromptSnippet = 4000

const intentSystemPrompt = `You classify questions asked on a consumer food and beverage product website.
Return a strict JSON object with exactly two keys:
mainIntent: "store" when the user wants to buy a product or find where it is sold, otherwise "info".
countIntent: "total" when the user asks how many products exist overall, "category" when the user asks how many products exist in a category, otherwise "search".
No markdown, no extra keys.`

const entityExtractionSystemPrompt = `You are an entity extraction agent.
From the given text, extract named entities relevant to the product website domain.
Return a JSON object with the keys "products", "categories", "ingredients" and "topics", each an array of strings.

Example output:
{
  "products": ["BOOST Kids Essentials"],
  "categories": ["nutritional supplements"],
  "ingredients": ["protein", "fibre", "vitamins", "minerals"],
  "topics": ["nutrition", "health", "wellness"]
}`
