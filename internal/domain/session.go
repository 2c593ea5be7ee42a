package domain

import (
	"fmt"
	"time"
)

// SessionKey scopes a wizard to one rendered message in one chat.
type SessionKey struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.MessageID)
}

type WizardSession struct {
	Category     string      `json:"category"` // category slug
	CategoryName string      `json:"category_name"`
	Step         int         `json:"step"`
	Selections   *Selections `json:"selections"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewWizardSession starts a session on a category. The name is kept next to
// the slug since slugs are reassigned when the catalog is re-indexed.
func NewWizardSession(categorySlug, categoryName string) *WizardSession {
	return &WizardSession{
		Category:     categorySlug,
		CategoryName: categoryName,
		Selections:   NewSelections(),
		UpdatedAt:    time.Now(),
	}
}
