// Package prompt turns a policy, retrieved product context and history into a stateless model input.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/regassist/internal/domain"
)

const ragPreamble = "\n\nATTENTION : Contexte produits Sogestmatic disponible. " +
	"Utilise ces informations UNIQUEMENT si l'utilisateur exprime une intention claire d'ACHAT ou de COMMANDE. " +
	"Ne mentionne JAMAIS ces produits pour des questions purement réglementaires ou techniques." +
	"\n\nContexte produits (extraits PDF du client) :\n"

const chunkSeparator = "\n---\n"

// History is caller-supplied conversation context, either pre-rendered text or structured turns.
// Turns win when both are set.
type History struct {
	Text  string
	Turns []domain.ConversationTurn
}

// Render serializes the history as role-prefixed lines.
func (h History) Render() string {
	if len(h.Turns) > 0 {
		return domain.FormatHistory(h.Turns)
	}
	return strings.TrimSpace(h.Text)
}

// Input is everything the assembler needs for one turn.
type Input struct {
	Policy   string
	Chunks   []domain.ScoredChunk
	History  History
	Message  string
	IsSocial bool
}

// Prompt is the assembled model input.
type Prompt struct {
	Instructions string
	Input        string
	RAGUsed      bool
}

// Build assembles instructions and input. Social turns never carry retrieved context.
func Build(in Input) Prompt {
	p := Prompt{Instructions: in.Policy}

	if !in.IsSocial && len(in.Chunks) > 0 {
		p.Instructions += RenderChunks(in.Chunks)
		p.RAGUsed = true
	}

	message := strings.TrimSpace(in.Message)
	if h := in.History.Render(); h != "" {
		p.Input = "Historique de la conversation:\n" + h + "\n\nNouvelle question: " + message
	} else {
		p.Input = message
	}
	return p
}

// RenderChunks renders retrieved chunks as a numbered, source-attributed block with its usage caveat.
// It returns an empty string for no chunks.
func RenderChunks(chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[[%d]] Source: %s\n%s", i+1, c.Source, c.Text)
	}
	return ragPreamble + strings.Join(parts, chunkSeparator)
}
