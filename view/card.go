package view

import (
	"html/template"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/wricardo/telemetry-dashboard/telemetry"
)

// Card is the rendered form of one telemetry pair: a label shown above a value.
type Card struct {
	Label string
	Value string
	Kind  telemetry.Kind
}

// NewCard builds the card for label and v. It never fails: any value is
// shown through its string form.
func NewCard(label string, v telemetry.Value) Card {
	return Card{Label: label, Value: v.String(), Kind: v.Kind()}
}

// CardsFor maps pairs to cards, keeping their order.
func CardsFor(pairs []telemetry.Pair) []Card {
	cards := make([]Card, len(pairs))
	for i, p := range pairs {
		cards[i] = NewCard(p.Label, p.Value)
	}
	return cards
}

// Text renders the card as a boxed block for terminals.
func (c Card) Text() string {
	width := utf8.RuneCountInString(c.Label)
	if n := utf8.RuneCountInString(c.Value); n > width {
		width = n
	}

	var b strings.Builder
	border := "+" + strings.Repeat("-", width+2) + "+\n"
	b.WriteString(border)
	writeLine(&b, c.Label, width)
	writeLine(&b, c.Value, width)
	b.WriteString(border)
	return b.String()
}

func writeLine(b *strings.Builder, s string, width int) {
	b.WriteString("| ")
	b.WriteString(s)
	b.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(s)))
	b.WriteString(" |\n")
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header><h1>{{.Title}}</h1></header>
<main>
{{- if .Error}}
<div class="error">{{.Error}}</div>
{{- end}}
{{- range .Cards}}
<div class="card" data-kind="{{.Kind}}">
<h2 class="label">{{.Label}}</h2>
<p class="data">{{.Value}}</p>
</div>
{{- end}}
</main>
</body>
</html>
`))

// WriteHTML renders a dashboard page with one block per card.
// errMsg, when non-empty, is shown above the cards.
func WriteHTML(w io.Writer, title string, cards []Card, errMsg string) error {
	return pageTemplate.Execute(w, struct {
		Title string
		Cards []Card
		Error string
	}{title, cards, errMsg})
}
