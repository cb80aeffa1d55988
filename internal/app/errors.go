package app

import (
	"context"
	"errors"
	"net/http"

	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/session"
	"agrisahayak.in/agri-sahayak/internal/tts"
	"agrisahayak.in/agri-sahayak/internal/weather"
)

// UserMessage turns err into a short message fit for the terminal.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, session.ErrUsernameTaken):
		return "That username is already taken."
	case errors.Is(err, session.ErrNoFieldsToUpdate):
		return "Nothing to update."
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Please log in first."
	case errors.Is(err, session.ErrProfileUnavailable):
		return "Could not load your profile. Please log in again."
	case errors.Is(err, ErrEmptyMessage):
		return "Type a question. An image needs a question with it."
	case errors.Is(err, ErrIncompleteSelection):
		return "Select a commodity, state and district first."
	case errors.Is(err, ErrInvalidDateRange):
		return "The start date must be before the end date."
	case errors.Is(err, ErrUnsupportedLanguage):
		return "Supported languages: en, hi, mr, pa, te, ta."
	case errors.Is(err, tts.ErrTimedOut):
		return "Speech took too long and was skipped."
	case errors.Is(err, weather.ErrLocateTimeout):
		return "Could not find your location. Showing weather for Kanpur."
	case errors.Is(err, client.ErrValidation):
		return "Please check the details you entered."
	case errors.Is(err, client.ErrNotFound):
		return "Not found."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	}

	var se *client.StatusError
	if errors.As(err, &se) && se.StatusCode >= http.StatusInternalServerError {
		return "The server is having trouble. Please try again later."
	}
	return "Something went wrong. Please try again."
}
