package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/domain/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// Подписи полей формы.
var fieldLabels = map[string]string{
	entities.FieldUsername:  "Username",
	entities.FieldEmail:     "Email",
	entities.FieldAddress:   "Address",
	entities.FieldPhone:     "Phone",
	entities.FieldPassword:  "Password",
	entities.FieldGender:    "Gender",
	entities.FieldTerms:     "I accept the terms and conditions",
	entities.FieldFile:      "File",
	entities.FieldDate:      "Date",
	entities.FieldYear:      "Year",
	entities.FieldExpertise: "Expertise (comma separated)",
}

var functions = template.FuncMap{
	"inputType": func(t entities.FieldType) string {
		switch t {
		case entities.TypeEmail:
			return "email"
		case entities.TypePassword:
			return "password"
		case entities.TypeBool:
			return "checkbox"
		case entities.TypeNumber:
			return "number"
		case entities.TypeDate:
			return "date"
		default:
			return "text"
		}
	},
	"isBool": func(t entities.FieldType) bool {
		return t == entities.TypeBool
	},
	"checked": entities.ParseBool,
}

// formField поле формы отправки.
type formField struct {
	entities.Field
	Label string
	Error string
}

// formView состояние формы отправки.
type formView struct {
	Token       string
	Fields      []formField
	GlobalError string
}

// pageData данные главной страницы.
type pageData struct {
	Form    formView
	Browser entities.BrowserState
	Notice  string
}

func newFormView(token string, rec *entities.Record, errs validation.Errors) formView {
	if rec == nil {
		rec = &entities.Record{}
	}
	descriptors := rec.Fields()
	fields := make([]formField, len(descriptors))
	for i, f := range descriptors {
		if f.Name == entities.FieldYear && rec.Year == 0 {
			f.Value = ""
		}
		fields[i] = formField{Field: f, Label: fieldLabels[f.Name], Error: errs[f.Name]}
	}
	return formView{Token: token, Fields: fields}
}

// Views отрисовывает HTML страницы.
type Views struct {
	templates *template.Template
}

// NewViews разбирает встроенные шаблоны.
func NewViews() (*Views, error) {
	ts, err := template.New("").Funcs(functions).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Views{templates: ts}, nil
}

// Render выполняет шаблон name целиком в буфер, чтобы ошибка шаблона не оставила ответ недописанным.
func (v *Views) Render(name string, data any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.templates.ExecuteTemplate(buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
