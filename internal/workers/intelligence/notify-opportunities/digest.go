// internal/workers/intelligence/notify-opportunities/digest.go
package notifyopportunities

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"

	"iluma-intelligence/internal/models"
)

const digestText = `{{.Opportunities}} conversion opportunities across {{.Total}} businesses (average score {{printf "%.2f" .AverageScore}}).

Top leads:
{{range .Leads}}- {{.ID}}{{if .Name}} ({{.Name}}){{end}}: {{.Sector}}, {{.City}}, score {{.Overall}}, potential {{.Potential}}, status {{.Status}}
{{end}}`

const digestHTML = `<p><strong>{{.Opportunities}}</strong> conversion opportunities across {{.Total}} businesses (average score {{printf "%.2f" .AverageScore}}).</p>
<table>
<tr><th>Business</th><th>Sector</th><th>City</th><th>Score</th><th>Potential</th><th>Status</th></tr>
{{range .Leads}}<tr><td>{{.ID}}{{if .Name}} ({{.Name}}){{end}}</td><td>{{.Sector}}</td><td>{{.City}}</td><td>{{.Overall}}</td><td>{{.Potential}}</td><td>{{.Status}}</td></tr>
{{end}}</table>`

var (
	textTmpl = template.Must(template.New("digest").Parse(digestText))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("digest").Parse(digestHTML))
)

type digestData struct {
	Opportunities int
	Total         int
	AverageScore  float64
	Leads         []models.Lead
}

func newDigestData(r models.StatsReport) digestData {
	return digestData{
		Opportunities: r.ConversionOpportunities,
		Total:         r.Total,
		AverageScore:  r.AverageScore,
		Leads:         r.HighPotentialLeads,
	}
}

// renderDigest returns the plain-text and HTML bodies of a lead digest.
func renderDigest(r models.StatsReport) (string, string, error) {
	data := newDigestData(r)

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return "", "", err
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}
