package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"labmaint/internal/types"
)

//go:embed templates/report_email.html templates/report_email.txt
var templateFS embed.FS

var (
	htmlTemplate = template.Must(template.ParseFS(templateFS, "templates/report_email.html"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/report_email.txt"))
)

// renderedEmail is the subject and both bodies of the report email.
type renderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

type mailData struct {
	Subject     string
	Period      string
	GeneratedAt string
	Timezone    string
	Overdue     int
	DueSoon     int
	OnTrack     int
	Completions int
	OverdueRows []ObligationRow
}

func buildMailData(snap Snapshot) mailData {
	loc := snap.Location
	if loc == nil {
		loc = snap.GeneratedAt.Location()
	}
	d := mailData{
		Subject:     "Reporte de mantenimiento " + snap.Period.Label(),
		Period:      snap.Period.Label(),
		GeneratedAt: snap.GeneratedAt.In(loc).Format(completedAtLayout),
		Timezone:    loc.String(),
		Completions: len(snap.History),
	}
	for _, row := range snap.Obligations {
		switch row.Status {
		case types.StatusOverdue:
			d.Overdue++
			d.OverdueRows = append(d.OverdueRows, row)
		case types.StatusDueSoon:
			d.DueSoon++
		default:
			d.OnTrack++
		}
	}
	return d
}

// renderEmail renders the summary that accompanies the attachments.
func renderEmail(snap Snapshot) (renderedEmail, error) {
	data := buildMailData(snap)

	var htmlBuf bytes.Buffer
	if err := htmlTemplate.Execute(&htmlBuf, data); err != nil {
		return renderedEmail{}, fmt.Errorf("render report email html: %w", err)
	}
	var txtBuf bytes.Buffer
	if err := textTemplate.Execute(&txtBuf, data); err != nil {
		return renderedEmail{}, fmt.Errorf("render report email text: %w", err)
	}
	return renderedEmail{Subject: data.Subject, BodyHTML: htmlBuf.String(), BodyText: txtBuf.String()}, nil
}
