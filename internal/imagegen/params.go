package imagegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"imagegen-server/internal/models"
	"imagegen-server/internal/resource"
)

// Значения по умолчанию для параметров генерации.
const (
	DefaultWidth  = 512
	DefaultHeight = 512
	DefaultNum    = 1
	DefaultSteps  = 50
)

// GenerateParams - входные параметры инструмента.
type GenerateParams struct {
	Prompt     string   `json:"prompt" validate:"required"`
	ImageNames []string `json:"image_names" validate:"required,unique,dive,bare_filename"`
	Width      int      `json:"width,omitempty" validate:"gt=0"`
	Height     int      `json:"height,omitempty" validate:"gt=0"`
	Num        int      `json:"num,omitempty" validate:"gte=1"`
	Steps      int      `json:"steps,omitempty" validate:"gte=1"`
	AgentID    *string  `json:"agent_id,omitempty" validate:"omitempty,bare_filename"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("bare_filename", func(fl validator.FieldLevel) bool {
		return resource.IsPathSegment(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// WithDefaults возвращает копию параметров с заполненными нулевыми полями и обрезанным промптом.
func (p GenerateParams) WithDefaults() GenerateParams {
	p.Prompt = strings.TrimSpace(p.Prompt)
	if p.Width == 0 {
		p.Width = DefaultWidth
	}
	if p.Height == 0 {
		p.Height = DefaultHeight
	}
	if p.Num == 0 {
		p.Num = DefaultNum
	}
	if p.Steps == 0 {
		p.Steps = DefaultSteps
	}
	return p
}

// Validate проверяет параметры. Ожидает, что дефолты уже применены.
func (p GenerateParams) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", models.ErrInvalidInput)
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q check (value %v)", models.ErrInvalidInput, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if len(p.ImageNames) < p.Num {
		return fmt.Errorf("%w: %d image names for %d images", models.ErrInvalidInput, len(p.ImageNames), p.Num)
	}
	return nil
}
