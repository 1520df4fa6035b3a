package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// Template names understood by the email worker.
const (
	Welcome     = "welcome"
	ListingSold = "listing_sold"
)

// EmailData defines the fields available to every template.
type EmailData struct {
	Name    string `json:"Name"`
	Email   string `json:"Email"`
	AppName string `json:"AppName"`

	// Frontend link shown as the call to action.
	ActionURL string `json:"ActionURL"`

	// Listing fields for listing_sold.
	ProductName  string  `json:"ProductName"`
	ProductPrice float64 `json:"ProductPrice"`

	Time string `json:"Time"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// NewWelcomeData builds the payload sent after an identity is created on first login.
func NewWelcomeData(appName, name, email, frontendURL string, at time.Time) map[string]any {
	return ToMap(EmailData{
		Name:      name,
		Email:     email,
		AppName:   appName,
		ActionURL: frontendURL,
		Time:      at.UTC().Format("02 January 2006, 15:04"),
	})
}

// NewListingSoldData builds the payload sent to a seller when a listing is marked sold.
func NewListingSoldData(appName, name, email, productName string, price float64, at time.Time) map[string]any {
	return ToMap(EmailData{
		Name:         name,
		Email:        email,
		AppName:      appName,
		ProductName:  productName,
		ProductPrice: price,
		Time:         at.UTC().Format("02 January 2006, 15:04"),
	})
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": defaultFn,
		"price":   func(v any) string { return fmt.Sprintf("%.2f", v) },
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// renderFile loads and renders a single template file from the embedded FS.
// isHTML indicates whether to use html/template (true) or text/template (false).
func renderFile(filename string, isHTML bool, data any) (string, error) {
	var (
		buf bytes.Buffer
		err error
	)

	if isHTML {
		tpl, e := htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).Funcs(textFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render loads and renders subject, text, and html templates for the given base name.
// Expects: <name>.subject.tmpl, <name>.text.tmpl, <name>.html.tmpl
func Render(name string, data any) (subject string, text string, html string, err error) {
	subject, err = renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}
