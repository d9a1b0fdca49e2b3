package store

import (
	"strings"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/google/uuid"
)

func seedProfileID(profile domain.ColleagueProfile) string {
	if strings.TrimSpace(profile.ID) != "" {
		return profile.ID
	}
	return uuid.NewString()
}

func seededQuotes(quotes []domain.DailyQuote, now string) []domain.DailyQuote {
	out := make([]domain.DailyQuote, 0, len(quotes))
	for _, quote := range quotes {
		if strings.TrimSpace(quote.Content) == "" {
			continue
		}
		if strings.TrimSpace(quote.ID) == "" {
			quote.ID = uuid.NewString()
		}
		if strings.TrimSpace(quote.CreatedAt) == "" {
			quote.CreatedAt = now
		}
		out = append(out, quote)
	}
	return out
}

func seededPopups(popups []domain.Popup) []domain.Popup {
	out := make([]domain.Popup, 0, len(popups))
	for _, popup := range popups {
		if strings.TrimSpace(popup.ImageURL) == "" {
			continue
		}
		if strings.TrimSpace(popup.ID) == "" {
			popup.ID = uuid.NewString()
		}
		out = append(out, popup)
	}
	return out
}
