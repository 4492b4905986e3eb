package server

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxUserLength = 64
	gameCodeMin   = 4
	gameCodeMax   = 12
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(wireName)
		_ = engine.RegisterValidation("user", func(fl validator.FieldLevel) bool {
			return validUser(fl.Field().String())
		})
		_ = engine.RegisterValidation("gamecode", func(fl validator.FieldLevel) bool {
			return validGameCode(fl.Field().String())
		})
	})
}

// wireName reports fields by the name clients send, so validation messages
// can be keyed the same way.
func wireName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// validUser accepts opaque user references: ids or handles without spaces.
func validUser(user string) bool {
	if user == "" || len(user) > maxUserLength {
		return false
	}
	for _, r := range user {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case '-', '_', '.', '@':
			continue
		default:
			return false
		}
	}
	return true
}

func validGameCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < gameCodeMin || len(code) > gameCodeMax {
		return false
	}
	for _, r := range strings.ToUpper(code) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
