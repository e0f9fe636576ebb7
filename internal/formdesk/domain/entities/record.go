// Package entities defines the domain entities of the formdesk service.
package entities

import (
	"strconv"
	"strings"
)

// Имена полей записи. Совпадают с именами колонок таблицы formdata.
const (
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldAddress   = "address"
	FieldPhone     = "phone"
	FieldPassword  = "password"
	FieldGender    = "gender"
	FieldTerms     = "terms"
	FieldFile      = "file"
	FieldDate      = "date"
	FieldYear      = "year"
	FieldExpertise = "expertise"

	// FieldID идентификатор, назначаемый хранилищем. Не входит в набор редактируемых полей.
	FieldID = "id"
)

// ExpertiseSeparator разделитель тегов во вводе expertise.
const ExpertiseSeparator = ","

// Record представляет одну отправляемую запись.
type Record struct {
	Username  string   `json:"username" validate:"required"`
	Email     string   `json:"email" validate:"email"`
	Address   string   `json:"address" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	Password  string   `json:"password" validate:"min=6"`
	Gender    string   `json:"gender" validate:"required"`
	Terms     bool     `json:"terms"`
	File      string   `json:"file" validate:"required"`
	Date      string   `json:"date"`
	Year      int      `json:"year"`
	Expertise []string `json:"expertise" validate:"min=1"`
}

// StoredRecord запись, сохраненная во внешнем хранилище.
type StoredRecord struct {
	ID int64 `json:"id"`
	Record
}

// SplitExpertise разбивает ввод по запятой без обрезки пробелов.
// Пустая строка дает последовательность из одного пустого тега.
func SplitExpertise(s string) []string {
	return strings.Split(s, ExpertiseSeparator)
}

// JoinExpertise обратная операция к SplitExpertise.
func JoinExpertise(tags []string) string {
	return strings.Join(tags, ExpertiseSeparator)
}

// Fields возвращает упорядоченный набор редактируемых полей записи.
func (r *Record) Fields() []Field {
	return []Field{
		{Name: FieldUsername, Type: TypeText, Value: r.Username},
		{Name: FieldEmail, Type: TypeEmail, Value: r.Email},
		{Name: FieldAddress, Type: TypeText, Value: r.Address},
		{Name: FieldPhone, Type: TypeText, Value: r.Phone},
		{Name: FieldPassword, Type: TypePassword, Value: r.Password},
		{Name: FieldGender, Type: TypeText, Value: r.Gender},
		{Name: FieldTerms, Type: TypeBool, Value: strconv.FormatBool(r.Terms)},
		{Name: FieldFile, Type: TypeText, Value: r.File},
		{Name: FieldDate, Type: TypeDate, Value: r.Date},
		{Name: FieldYear, Type: TypeNumber, Value: strconv.Itoa(r.Year)},
		{Name: FieldExpertise, Type: TypeTags, Value: JoinExpertise(r.Expertise)},
	}
}

// Apply возвращает копию записи, поверх которой наложены значения fields.
// Неизвестные поля пропускаются.
func (r Record) Apply(fields []Field) Record {
	out := r
	out.Expertise = append([]string(nil), r.Expertise...)

	for _, f := range fields {
		switch f.Name {
		case FieldUsername:
			out.Username = f.Value
		case FieldEmail:
			out.Email = f.Value
		case FieldAddress:
			out.Address = f.Value
		case FieldPhone:
			out.Phone = f.Value
		case FieldPassword:
			out.Password = f.Value
		case FieldGender:
			out.Gender = f.Value
		case FieldTerms:
			out.Terms = ParseBool(f.Value)
		case FieldFile:
			out.File = f.Value
		case FieldDate:
			out.Date = f.Value
		case FieldYear:
			out.Year = ParseNumber(f.Value)
		case FieldExpertise:
			out.Expertise = SplitExpertise(f.Value)
		}
	}
	return out
}

// ParseBool разбирает флаг из ввода формы. Нераспознанное значение считается false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "1", "true", "t":
		return true
	default:
		return false
	}
}

// ParseNumber разбирает число из ввода формы. Нераспознанное значение считается 0.
func ParseNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
