package notification

import (
	"bytes"
	"html/template"
)

const thankYouSubject = "Thank you for supporting "

// thankYouData is what the thank-you email template renders.
type thankYouData struct {
	Name          string
	CampaignTitle string
	NGOName       string
	NGOLocation   string
	Message       string
}

var thankYouTemplate = template.Must(template.New("thank_you").Parse(`<p>Dear {{.Name}},</p>
<p>{{.Message}}</p>
<p>Campaign: <strong>{{.CampaignTitle}}</strong></p>
<p>{{.NGOName}}{{if .NGOLocation}}, {{.NGOLocation}}{{end}}</p>`))

func renderThankYou(data thankYouData) (string, error) {
	var buf bytes.Buffer
	if err := thankYouTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
