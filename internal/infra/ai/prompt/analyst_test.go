package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUploadPrompt(t *testing.T) {
	p := GetUploadPrompt("sales.csv", "date,revenue\n2024-01-01,100")
	assert.Contains(t, p, `"sales.csv"`)
	assert.Contains(t, p, "<csv>\ndate,revenue\n2024-01-01,100\n</csv>")
}

func TestGetSystemPromptMentionsContract(t *testing.T) {
	p := GetSystemPrompt()
	assert.Contains(t, p, `"summary"`)
	assert.Contains(t, p, `"anomaly_count"`)
}
