package http

import (
	"github.com/gofiber/fiber/v3"

	"formdesk/internal/formdesk/domain/entities"
)

// recordFromForm собирает запись из полей формы отправки.
// Незаполненное поле expertise дает пустую последовательность тегов.
func recordFromForm(ctx fiber.Ctx) *entities.Record {
	rec := &entities.Record{
		Username: ctx.FormValue(entities.FieldUsername),
		Email:    ctx.FormValue(entities.FieldEmail),
		Address:  ctx.FormValue(entities.FieldAddress),
		Phone:    ctx.FormValue(entities.FieldPhone),
		Password: ctx.FormValue(entities.FieldPassword),
		Gender:   ctx.FormValue(entities.FieldGender),
		Terms:    entities.ParseBool(ctx.FormValue(entities.FieldTerms)),
		File:     ctx.FormValue(entities.FieldFile),
		Date:     ctx.FormValue(entities.FieldDate),
		Year:     entities.ParseNumber(ctx.FormValue(entities.FieldYear)),
	}
	if expertise := ctx.FormValue(entities.FieldExpertise); expertise != "" {
		rec.Expertise = entities.SplitExpertise(expertise)
	}
	return rec
}

// patchFromForm возвращает присланные редактируемые поля в порядке полей записи.
func patchFromForm(ctx fiber.Ctx) entities.Patch {
	var patch entities.Patch
	for _, f := range (&entities.Record{}).Fields() {
		if !formHas(ctx, f.Name) {
			continue
		}
		f.Value = ctx.FormValue(f.Name)
		patch = append(patch, f)
	}
	return patch
}

func formHas(ctx fiber.Ctx, name string) bool {
	if ctx.Request().PostArgs().Has(name) {
		return true
	}
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return false
	}
	_, ok := form.Value[name]
	return ok
}
