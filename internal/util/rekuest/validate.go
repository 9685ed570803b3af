package rekuest

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	esTranslations "github.com/go-playground/validator/v10/translations/es"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/util"
	"actiapp.dev/backend/internal/util/i18n"
)

var Validate = util.NewValidator()

func init() {
	var err error
	entr, _ := i18n.UT.GetTranslator("en")
	err = enTranslations.RegisterDefaultTranslations(Validate, entr)
	if err != nil {
		log.Warn().Err(err).Str("locale", "en").Msg("could not register translation")
	}

	estr, _ := i18n.UT.GetTranslator("es")
	err = esTranslations.RegisterDefaultTranslations(Validate, estr)
	if err != nil {
		log.Warn().Err(err).Str("locale", "es").Msg("could not register translation")
	}

	translators := map[string]ut.Translator{
		"en": entr,
		"es": estr,
	}

	for l, t := range translators {
		err = Validate.RegisterTranslation("role", t, func(ut ut.Translator) error {
			return nil
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("oneof", fe.Field(), "admin_general admin_org user")
			return t
		})

		if err != nil {
			log.Warn().Err(err).Str("locale", l).Msg("could not register translation for function role")
		}

		err = Validate.RegisterTranslation("notblank", t, func(ut ut.Translator) error {
			return nil
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("required", fe.Field())
			return t
		})

		if err != nil {
			log.Warn().Err(err).Str("locale", l).Msg("could not register translation for function notblank")
		}
	}
}

type ErrorResponse struct {
	Field     string `json:"field,omitempty"`
	Violation string `json:"violation"`
	Message   string `json:"message"`
}

// TranslatorFromCtx returns the translator negotiated by middlewares.InjectI18n,
// or the fallback one when the middleware did not run.
func TranslatorFromCtx(ctx *fiber.Ctx) ut.Translator {
	if t, ok := ctx.Locals("T").(ut.Translator); ok {
		return t
	}
	return i18n.UT.GetFallback()
}

func translate(utt ut.Translator, ve validator.ValidationErrors) []*ErrorResponse {
	trans := []*ErrorResponse{}

	for _, fe := range ve {
		trans = append(trans, &ErrorResponse{
			Field:     trimRoot(fe.Namespace()),
			Violation: fe.Tag(),
			Message:   fe.Translate(utt),
		})
	}

	return trans
}

// trimRoot drops the struct name validator prefixes namespaces with.
func trimRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func validateVar(ctx *fiber.Ctx, s any, tag string) []*ErrorResponse {
	err := Validate.Var(s, tag)
	if err != nil {
		errs := err.(validator.ValidationErrors)
		return translate(TranslatorFromCtx(ctx), errs)
	}
	return nil
}

func validateStruct(ctx *fiber.Ctx, s any) []*ErrorResponse {
	err := Validate.Struct(s)
	if err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			panic(err)
		}
		return translate(TranslatorFromCtx(ctx), errs)
	}
	return nil
}

// ValidBody will get the body from *fiber.Ctx using fiber#BodyParser(),
// and validate it using the validator singleton. If the validation passed it will write the unmarshalled body
// to dest and return a nil, otherwise it will return an error. Notice that dest shall
// always be a pointer.
func ValidBody(ctx *fiber.Ctx, dest any) error {
	if err := ctx.BodyParser(dest); err != nil {
		return acterr.ErrInvalidReq.Msg("invalid request: %s", err)
	}

	return ValidStruct(ctx, dest)
}

func ValidStruct(ctx *fiber.Ctx, dest any) error {
	if err := validateStruct(ctx, dest); err != nil {
		return acterr.NewInvalidViolations(err)
	}

	return nil
}

func ValidVar(ctx *fiber.Ctx, field any, tag string) error {
	if err := validateVar(ctx, field, tag); err != nil {
		return acterr.NewInvalidViolations(err)
	}

	return nil
}

// ValidID checks a path parameter is a well-formed identifier.
func ValidID(ctx *fiber.Ctx, param string) (string, error) {
	id := ctx.Params(param)
	if err := ValidVar(ctx, id, "required,max=64,printascii"); err != nil {
		return "", err
	}
	return id, nil
}
