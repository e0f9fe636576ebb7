package entities

import "errors"

// ErrUnknownField возвращается при попытке изменить поле, которого нет в наборе редактируемых.
var ErrUnknownField = errors.New("unknown or read-only field")

// FieldType тип поля, определяет отображение и разбор значения.
type FieldType string

// Типы полей.
const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypePassword FieldType = "password"
	TypeBool     FieldType = "bool"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeTags     FieldType = "tags"
)

// Field описатель одного поля записи: имя, тип и текстовое значение.
type Field struct {
	Name  string    `json:"name"`
	Type  FieldType `json:"type"`
	Value string    `json:"value"`
}

// Patch частичное обновление записи.
type Patch []Field

// Names возвращает имена полей в порядке следования.
func (p Patch) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

// IsEditable сообщает, входит ли name в набор редактируемых полей.
func IsEditable(name string) bool {
	if name == FieldID {
		return false
	}
	for _, f := range (&Record{}).Fields() {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Draft редактируемая копия сохраненной записи.
type Draft struct {
	ID     int64   `json:"id"`
	Fields []Field `json:"fields"`
}

// NewDraft снимает копию полей записи.
func NewDraft(rec *StoredRecord) *Draft {
	return &Draft{ID: rec.ID, Fields: rec.Record.Fields()}
}

// Set меняет значение поля черновика.
func (d *Draft) Set(name, value string) error {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			d.Fields[i].Value = value
			return nil
		}
	}
	return ErrUnknownField
}

// Value возвращает значение поля черновика.
func (d *Draft) Value(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Patch возвращает полный черновик как частичное обновление.
func (d *Draft) Patch() Patch {
	return append(Patch(nil), d.Fields...)
}

// Clone возвращает независимую копию черновика.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	return &Draft{ID: d.ID, Fields: append([]Field(nil), d.Fields...)}
}
