package service

import (
	"errors"

	domainerrors "github.com/listenupapp/booklist-server/internal/errors"
)

func errLogInFirst() *domainerrors.Error {
	return domainerrors.Unauthenticated("Log in first")
}

func errBookExists(title string) *domainerrors.Error {
	return domainerrors.BadUserInput("Book is already added").WithInvalidArgs(title)
}

func errWrongCredentials() *domainerrors.Error {
	return domainerrors.BadUserInput("Wrong user credentials")
}

// inputError turns a validation failure into a BAD_USER_INPUT error whose
// message starts with prefix and keeps the per-field details.
func inputError(prefix string, err error, invalidArgs any) *domainerrors.Error {
	out := domainerrors.BadUserInput(prefix)
	var verr *domainerrors.Error
	if errors.As(err, &verr) {
		out = domainerrors.BadUserInput(prefix + ": " + verr.Message).WithDetails(verr.Details)
	}
	if invalidArgs != nil {
		out = out.WithInvalidArgs(invalidArgs)
	}
	return out.WithCause(err)
}
