package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior financial data analyst performing anomaly detection on tabular time series. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- anomaly_count must be a non-negative integer equal to the number of items in details.
- Use uppercase severity values: HIGH, MEDIUM, LOW.
- Flag a row when it falls outside the IQR range (Q1 - 1.5*IQR, Q3 + 1.5*IQR) or its z-score magnitude exceeds 2.5.
- Never repeat personal data (names, emails, phone numbers) from the input; write <REDACTED> instead.

Schema (example with empty values):
{
  "summary": "<string>",
  "anomaly_count": 0,
  "total_rows_analyzed": 0,
  "statistical_profile": {"mean": 0, "std_dev": 0, "iqr_range": "<low> - <high>"},
  "details": [
    {
      "date": "<string>",
      "actual_value": 0,
      "expected_range": "<string>",
      "severity": "<HIGH|MEDIUM|LOW>",
      "reason": "<string>"
    }
  ]
}`
}

// GetSimulatedPrompt asks the model to generate and analyze the demo data set.
func GetSimulatedPrompt(label string) string {
	return fmt.Sprintf(`Data source: %s.
Generate a 30-day daily revenue series starting 2024-01-01 with values between 10000 and 12000, except day 20 which drops to 2000. Analyze it and respond with the JSON per schema.`, label)
}

// GetUploadPrompt wraps an uploaded CSV document.
func GetUploadPrompt(filename, csv string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data source: uploaded file %q.\n", filename)
	b.WriteString("Analyze the CSV below (first row is the header) and respond with the JSON per schema.\n")
	b.WriteString("<csv>\n")
	b.WriteString(csv)
	if !strings.HasSuffix(csv, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("</csv>")
	return b.String()
}
