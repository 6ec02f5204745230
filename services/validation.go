package services

import (
	"contact-relay/domain"
	"contact-relay/errors"
	stderrors "errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	ID       string `json:"id" validate:"required"`
}

// FriendRequest asks For to accept From as a contact.
type FriendRequest struct {
	For  string `json:"for" validate:"required"`
	From string `json:"from" validate:"required"`
}

// FriendResponse is From's answer to a request previously sent by For.
type FriendResponse struct {
	For    string `json:"for" validate:"required"`
	From   string `json:"from" validate:"required"`
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !stderrors.As(err, &fieldErrors) {
			return err
		}
		for _, fe := range fieldErrors {
			if fe.Field() != "Username" {
				continue
			}
			if fe.Tag() == "required" {
				return errors.InvalidUsername(errors.ErrUsernameEmpty)
			}
			return errors.InvalidUsername(errors.ErrUsernameTooShort)
		}
		return errors.ErrMalformedRequest
	}
	if strings.IndexFunc(req.Username, unicode.IsSpace) >= 0 {
		return errors.InvalidUsername(errors.ErrUsernameWhitespace)
	}
	return nil
}

func ValidateFriendRequest(req FriendRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.ErrMalformedRequest
	}
	return nil
}

func ValidateFriendResponse(req FriendResponse) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if stderrors.As(err, &fieldErrors) && fieldErrors[0].Field() == "Status" {
			return errors.ErrInvalidStatus
		}
		return errors.ErrMalformedRequest
	}
	if !domain.Status(req.Status).IsValid() {
		return errors.ErrInvalidStatus
	}
	return nil
}
