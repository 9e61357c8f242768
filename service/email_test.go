package service

import (
	"fmt"
	"testing"

	"globfam/config"

	"github.com/stretchr/testify/assert"
)

func newTestEmailService() *EmailService {
	return NewEmailService(&config.EmailConfig{})
}

func TestGenerateImportSummaryBody(t *testing.T) {
	s := newTestEmailService()
	body := s.generateImportSummaryBody("Ana <script>", ImportSummary{
		FileName:      "westpac.csv",
		AssetName:     "Everyday",
		Status:        "completed",
		TotalRows:     12,
		SuccessRows:   10,
		FailedRows:    1,
		DuplicateRows: 1,
		Errors:        []string{"row 4: unrecognised date \"31/31/2024\""},
	})
	assert.Contains(t, body, "westpac.csv")
	assert.Contains(t, body, "Everyday")
	assert.Contains(t, body, "<tr><td>Imported</td><td>10</td></tr>")
	assert.Contains(t, body, "Ana &lt;script&gt;")
	assert.Contains(t, body, "row 4: unrecognised date &#34;31/31/2024&#34;")
	assert.Contains(t, body, "width: 100%;")
}

func TestGenerateImportSummaryBody_TruncatesErrors(t *testing.T) {
	s := newTestEmailService()
	errs := make([]string, 15)
	for i := range errs {
		errs[i] = fmt.Sprintf("row %d: bad amount", i+1)
	}
	body := s.generateImportSummaryBody("Ana", ImportSummary{Errors: errs})
	assert.Contains(t, body, "row 10: bad amount")
	assert.NotContains(t, body, "row 11: bad amount")
	assert.Contains(t, body, "and 5 more")

	clean := s.generateImportSummaryBody("Ana", ImportSummary{})
	assert.NotContains(t, clean, "could not be imported")
}

func TestEmailService_Disabled(t *testing.T) {
	s := newTestEmailService()
	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.SendImportSummary("a@example.com", "Ana", ImportSummary{}), ErrEmailDisabled)
	assert.ErrorIs(t, s.SendTestEmail("a@example.com"), ErrEmailDisabled)

	var nilSvc *EmailService
	assert.False(t, nilSvc.Enabled())
}
