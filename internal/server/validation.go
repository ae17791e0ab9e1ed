package server

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	levelIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	registerOnce   sync.Once
	registerErr    error
)

// registerValidators adds the custom binding rules:
// levelid accepts catalog-style ids such as "level1" or "roleplay_restaurant".
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = v.RegisterValidation("levelid", func(fl validator.FieldLevel) bool {
			return levelIDPattern.MatchString(fl.Field().String())
		})
	})
	return registerErr
}
