package i18n

import (
	ut "github.com/go-playground/universal-translator"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
)

var UT = ut.New(en.New(), en.New(), es.New())
