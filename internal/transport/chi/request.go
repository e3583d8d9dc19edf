package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/prompt"
	"github.com/kailas-cloud/regassist/internal/usecase/assistant"
)

const maxBodyBytes = 1 << 20

// askRequest is the body of both ask endpoints. Message emptiness is checked by the pipeline,
// which owns the user-facing message for it.
type askRequest struct {
	Message      string      `json:"message" validate:"max=8000"`
	UseWebSearch *bool       `json:"useWebSearch"`
	History      historyBody `json:"history"`
}

// historyBody accepts either a pre-rendered string or a list of turns.
type historyBody struct {
	Text  string                    `validate:"max=32000"`
	Turns []domain.ConversationTurn `validate:"max=50,dive"`
}

func (h *historyBody) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &h.Text)
	case data[0] == '[':
		return json.Unmarshal(data, &h.Turns)
	default:
		return errors.New("history must be a string or a list of turns")
	}
}

func (r askRequest) toDomain(id Identity) assistant.Request {
	useWebSearch := true
	if r.UseWebSearch != nil {
		useWebSearch = *r.UseWebSearch
	}
	return assistant.Request{
		UserID:       id.UserID,
		Role:         id.Role,
		Message:      r.Message,
		UseWebSearch: useWebSearch,
		History:      prompt.History{Text: r.History.Text, Turns: r.History.Turns},
	}
}

// validationMessage turns validator errors into one short client-facing line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Requête invalide"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return "Requête invalide: " + strings.Join(parts, ", ")
}
