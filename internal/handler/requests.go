package handler

import (
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" validate:"required,max=15"`
	Username string `json:"username" form:"username" validate:"required,max=15"`
	Email    string `json:"email" form:"email" validate:"required,email,max=50"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=50"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TaskRequest carries the text of a new or edited task.
type TaskRequest struct {
	Content string `json:"content"`
}

// fieldErrors turns validator output into one message per form field.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		out["form"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}

func parseTaskID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
