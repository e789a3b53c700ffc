package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
)

//go:embed *.tmpl
var templatesFS embed.FS

var parsed = template.Must(template.ParseFS(templatesFS, "*.tmpl"))

// Data carries the placeholder fields substituted into a legal document.
type Data struct {
	BusinessName          string
	BusinessContact       string
	CounterpartyName      string
	ProjectTitle          string
	TaskTitle             string
	EffectiveDate         string
	EquityPercent         float64
	DurationMonths        int
	ConfidentialityMonths int
	ArbitrationForum      string
	GoverningLaw          string
	PriorContractDate     string
	Deliverables          string
}

// Render produces the document body for the given type. The result is stored
// as an opaque blob; the engine never parses it back.
func Render(docType domain.DocumentType, data Data) (string, error) {
	name := string(docType) + ".tmpl"
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
