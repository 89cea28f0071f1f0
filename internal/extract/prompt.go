package extract

import (
	"fmt"
	"strings"

	"github.com/oilpro/tanks-cli/internal/reconcile"
)

const systemPrompt = "You are an API 653 tank inspection data extraction specialist. " +
	"You extract structured inspection fields from spreadsheet content and return only valid JSON. " +
	"Use null for fields not found. Never invent values."

const promptHeader = `Analyze the following spreadsheet content from a tank inspection workbook and extract the fields listed below.

SPREADSHEET CONTENT:
%s

FIELDS TO EXTRACT:
Field names vary wildly across the industry. For each field, search the content for ANY of the listed name variations, in headers, labels, and adjacent cells:
%s
Also extract, when present: findings, recommendations, notes (free-text sections; keep them verbatim).

RULES:
- Do NOT use the workbook filename as the tank identifier; look for an actual tank number in the data.
- Field name matching is case-insensitive; also check abbreviated forms.
- Dates must be returned in YYYY-MM-DD format.
- Dimensions in feet, capacity in gallons (convert barrels by multiplying by 42).
- Use null for anything not found. Return ONLY the JSON object, no explanations.

Return JSON with exactly this shape:
{
  "tank_info": {
    "tank_number": "string or null",
    "product": "string or null",
    "diameter_ft": "number or null",
    "height_ft": "number or null",
    "capacity_gal": "number or null",
    "year_built": "number or null",
    "shell_material": "string or null",
    "roof_type": "string or null",
    "foundation_type": "string or null"
  },
  "inspection_info": {
    "report_number": "string or null",
    "inspector_name": "string or null",
    "inspection_date": "YYYY-MM-DD or null"
  },
  "findings": "string or null",
  "recommendations": "string or null",
  "notes": "string or null"
}`

// buildPrompt renders the extraction prompt from the registry's synonym
// vocabulary, so the prompt and the reconciler always accept the same names.
func buildPrompt(reg *reconcile.Registry, workbookText string) string {
	var vocab strings.Builder
	for _, f := range reg.Fields() {
		names := append([]string{f.Name}, f.Synonyms...)
		fmt.Fprintf(&vocab, "- %s: %s\n", f.Name, strings.Join(names, ", "))
	}
	return fmt.Sprintf(promptHeader, workbookText, vocab.String())
}
